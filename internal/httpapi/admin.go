package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studentmanagement/internal/access"
	"studentmanagement/internal/account"
	"studentmanagement/internal/auth"
	"studentmanagement/internal/export"
	"studentmanagement/internal/ledger"
	"studentmanagement/internal/report"
	"studentmanagement/internal/roster"
)

type createUserRequest struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Department      string `json:"department"`
	AdmissionNumber string `json:"admission_number"`
	Semester        string `json:"semester"`
}

type updateUserRequest struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	Department      *string `json:"department"`
	AdmissionNumber *string `json:"admission_number"`
	Semester        *string `json:"semester"`
	Enabled         *bool   `json:"enabled"`
	Password        *string `json:"password"`
}

// adminCreateUser returns a handler creating users with a fixed role, so the
// /students and /teachers routes cannot be used to mint admins.
func (s *Server) adminCreateUser(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		usr, err := s.accounts.Create(c.Request.Context(), auth.ContextActor(c), account.NewUser{
			Username:        req.Username,
			Password:        req.Password,
			Role:            role,
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			Email:           req.Email,
			Phone:           req.Phone,
			Department:      req.Department,
			AdmissionNumber: req.AdmissionNumber,
			Semester:        req.Semester,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, usr)
	}
}

func (s *Server) adminListUsers(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.accounts.ListByRole(c.Request.Context(), auth.ContextActor(c), role)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}

func (s *Server) adminGetUser(c *gin.Context) {
	usr, err := s.accounts.Get(c.Request.Context(), auth.ContextActor(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, usr)
}

func (s *Server) adminUpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	usr, err := s.accounts.Update(c.Request.Context(), auth.ContextActor(c), c.Param("id"), account.UpdateUser{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		Department:      req.Department,
		AdmissionNumber: req.AdmissionNumber,
		Semester:        req.Semester,
		Enabled:         req.Enabled,
		Password:        req.Password,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, usr)
}

func (s *Server) adminDeleteUser(c *gin.Context) {
	if err := s.accounts.Delete(c.Request.Context(), auth.ContextActor(c), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) adminSearchUsers(c *gin.Context) {
	users, err := s.accounts.Search(c.Request.Context(), auth.ContextActor(c), c.Query("q"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type classRequest struct {
	Name       string  `json:"name" binding:"required"`
	Department string  `json:"department"`
	TeacherID  *string `json:"teacher_id"`
}

type updateClassRequest struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
}

func (s *Server) adminCreateClass(c *gin.Context) {
	var req classRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cls, err := s.roster.CreateClass(c.Request.Context(), auth.ContextActor(c), roster.NewClass{
		Name:       req.Name,
		Department: req.Department,
		TeacherID:  req.TeacherID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, cls)
}

func (s *Server) adminListClasses(c *gin.Context) {
	classes, err := s.roster.ListClasses(c.Request.Context(), auth.ContextActor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

func (s *Server) adminGetClass(c *gin.Context) {
	cls, err := s.roster.GetClass(c.Request.Context(), auth.ContextActor(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cls)
}

func (s *Server) adminUpdateClass(c *gin.Context) {
	var req updateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cls, err := s.roster.UpdateClass(c.Request.Context(), auth.ContextActor(c), c.Param("id"), roster.UpdateClass{
		Name:       req.Name,
		Department: req.Department,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cls)
}

func (s *Server) adminDeleteClass(c *gin.Context) {
	if err := s.roster.DeleteClass(c.Request.Context(), auth.ContextActor(c), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) adminClassStudents(c *gin.Context) {
	students, err := s.roster.StudentsInClass(c.Request.Context(), auth.ContextActor(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (s *Server) adminClassStudentsExport(c *gin.Context) {
	classID := c.Param("id")
	students, err := s.roster.StudentsInClass(c.Request.Context(), auth.ContextActor(c), classID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="students-`+classID+`.csv"`)
	if err := export.StudentsCSV(c.Writer, students); err != nil {
		c.Abort()
	}
}

func (s *Server) adminAssignTeacher(c *gin.Context) {
	cls, err := s.roster.AssignTeacher(c.Request.Context(), auth.ContextActor(c), c.Param("id"), c.Param("teacherId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cls)
}

func (s *Server) adminAssignStudent(c *gin.Context) {
	err := s.roster.AssignStudent(c.Request.Context(), auth.ContextActor(c), c.Param("id"), c.Param("classId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) adminGlobalAttendance(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	records, err := s.ledger.RecordsFor(c.Request.Context(), auth.ContextActor(c), ledger.Global, from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "summary": report.Summarize(records)})
}

func (s *Server) adminStudentAttendance(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	records, err := s.ledger.RecordsFor(c.Request.Context(), auth.ContextActor(c), ledger.ForStudent(c.Param("id")), from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "summary": report.Summarize(records)})
}

func (s *Server) adminDeleteAttendance(c *gin.Context) {
	if err := s.ledger.Delete(c.Request.Context(), auth.ContextActor(c), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// adminDashboard aggregates the counts and charts the admin landing page
// renders: role counts, students per class and the recent attendance trend.
func (s *Server) adminDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	actor := auth.ContextActor(c)

	students, err := s.accounts.ListByRole(ctx, actor, access.RoleStudent)
	if err != nil {
		respondErr(c, err)
		return
	}
	teachers, err := s.accounts.ListByRole(ctx, actor, access.RoleTeacher)
	if err != nil {
		respondErr(c, err)
		return
	}
	classes, err := s.roster.ListClasses(ctx, actor)
	if err != nil {
		respondErr(c, err)
		return
	}

	to := ledger.Today()
	from := to.AddDays(-13)
	records, err := s.ledger.RecordsFor(ctx, actor, ledger.Global, from, to)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"students":           len(students),
		"teachers":           len(teachers),
		"classes":            len(classes),
		"class_distribution": report.ClassDistribution(students, classes),
		"trend":              report.DailyTrend(records),
		"summary":            report.Summarize(records),
	})
}
