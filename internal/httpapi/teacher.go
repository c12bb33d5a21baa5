package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studentmanagement/internal/access"
	"studentmanagement/internal/apperr"
	"studentmanagement/internal/auth"
	"studentmanagement/internal/cache"
	"studentmanagement/internal/export"
	"studentmanagement/internal/ledger"
	"studentmanagement/internal/report"
)

func (s *Server) teacherClasses(c *gin.Context) {
	actor := auth.ContextActor(c)
	classes, err := s.roster.ClassesForTeacher(c.Request.Context(), actor, actor.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

func (s *Server) teacherClassStudents(c *gin.Context) {
	students, err := s.roster.StudentsInClass(c.Request.Context(), auth.ContextActor(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// teacherClassAttendance lists a class's records for ?date=YYYY-MM-DD (one
// day) or ?from=&to= (a range).
func (s *Server) teacherClassAttendance(c *gin.Context) {
	var from, to ledger.Date
	if day := c.Query("date"); day != "" {
		parsed, err := ledger.ParseDate(day)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		from, to = parsed, parsed
	} else {
		var err error
		from, to, err = queryRange(c)
		if err != nil {
			respondErr(c, err)
			return
		}
	}

	records, err := s.ledger.RecordsFor(c.Request.Context(), auth.ContextActor(c), ledger.ForClass(c.Param("id")), from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "summary": report.Summarize(records)})
}

type markRequest struct {
	StudentID string      `json:"student_id" binding:"required"`
	Date      ledger.Date `json:"date" binding:"required"`
	Present   bool        `json:"present"`
	Remarks   string      `json:"remarks"`
}

func (s *Server) teacherMark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, created, err := s.ledger.Mark(c.Request.Context(), auth.ContextActor(c), ledger.Mark{
		StudentID: req.StudentID,
		ClassID:   c.Param("id"),
		Date:      req.Date,
		Present:   req.Present,
		Remarks:   req.Remarks,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"record": rec, "created": created})
}

type markBatchRequest struct {
	Date  ledger.Date        `json:"date" binding:"required"`
	Items []ledger.BatchItem `json:"items" binding:"required"`
}

func (s *Server) teacherMarkBatch(c *gin.Context) {
	var req markBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outcomes, err := s.ledger.MarkBatch(c.Request.Context(), auth.ContextActor(c), c.Param("id"), req.Date, req.Items)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": outcomes})
}

type updateRecordRequest struct {
	Present bool   `json:"present"`
	Remarks string `json:"remarks"`
}

func (s *Server) teacherUpdateRecord(c *gin.Context) {
	var req updateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := s.ledger.Update(c.Request.Context(), auth.ContextActor(c), c.Param("id"), req.Present, req.Remarks)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) teacherDeleteRecord(c *gin.Context) {
	if err := s.ledger.Delete(c.Request.Context(), auth.ContextActor(c), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// teacherClassSummary serves the 30-day class rollup the dashboard polls.
// Only this fixed window is cached; explicit ranges go through the
// attendance listing instead.
func (s *Server) teacherClassSummary(c *gin.Context) {
	classID := c.Param("id")
	actor := auth.ContextActor(c)

	// Ownership is checked before the cache is consulted: a cached entry
	// must never leak across teachers.
	teacherID, err := s.roster.ClassTeacherID(c.Request.Context(), classID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if d := access.Decide(actor, access.ActionReadAttendance, access.Resource{ClassTeacherID: teacherID}); !d.Allowed {
		respondErr(c, apperr.E(apperr.KindAuthorization, d.Reason))
		return
	}

	key := cache.ClassSummaryKey(classID)
	var cached report.Summary
	if s.cache.GetJSON(c.Request.Context(), key, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	from, to := defaultRange()
	records, err := s.ledger.RecordsFor(c.Request.Context(), auth.ContextActor(c), ledger.ForClass(classID), from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	summary := report.Summarize(records)
	s.cache.SetJSON(c.Request.Context(), key, summary)
	c.JSON(http.StatusOK, summary)
}

func (s *Server) teacherExport(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	classID := c.Param("id")
	records, err := s.ledger.RecordsFor(c.Request.Context(), auth.ContextActor(c), ledger.ForClass(classID), from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	writeCSV(c, "attendance-"+classID+"-"+from.String()+"-"+to.String()+".csv", records)
}

func writeCSV(c *gin.Context, filename string, records []ledger.AttendanceRecord) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := export.AttendanceCSV(c.Writer, records); err != nil {
		// Headers are already out; all we can do is drop the connection.
		c.Abort()
	}
}
