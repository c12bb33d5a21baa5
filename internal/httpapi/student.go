package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studentmanagement/internal/account"
	"studentmanagement/internal/auth"
	"studentmanagement/internal/cache"
	"studentmanagement/internal/ledger"
	"studentmanagement/internal/report"
)

// studentProfile returns the caller's account together with their current
// class, nil when unassigned.
func (s *Server) studentProfile(c *gin.Context) {
	actor := auth.ContextActor(c)
	usr, err := s.accounts.GetByID(c.Request.Context(), actor.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	cls, err := s.roster.ClassForStudent(c.Request.Context(), actor, actor.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": usr, "class": cls})
}

type profileUpdateRequest struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

func (s *Server) studentUpdateProfile(c *gin.Context) {
	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	usr, err := s.accounts.UpdateProfile(c.Request.Context(), auth.ContextActor(c), account.ProfileUpdate{
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, usr)
}

func (s *Server) studentAttendance(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	actor := auth.ContextActor(c)
	records, err := s.ledger.RecordsFor(c.Request.Context(), actor, ledger.ForStudent(actor.ID), from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "summary": report.Summarize(records)})
}

// studentSummary serves the 30-day personal rollup, cached per student. The
// subject is always the caller, so a cache hit cannot cross accounts.
func (s *Server) studentSummary(c *gin.Context) {
	actor := auth.ContextActor(c)
	key := cache.StudentSummaryKey(actor.ID)

	var cached report.Summary
	if s.cache.GetJSON(c.Request.Context(), key, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	from, to := defaultRange()
	records, err := s.ledger.RecordsFor(c.Request.Context(), actor, ledger.ForStudent(actor.ID), from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	summary := report.Summarize(records)
	s.cache.SetJSON(c.Request.Context(), key, summary)
	c.JSON(http.StatusOK, summary)
}

func (s *Server) studentExport(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	actor := auth.ContextActor(c)
	records, err := s.ledger.RecordsFor(c.Request.Context(), actor, ledger.ForStudent(actor.ID), from, to)
	if err != nil {
		respondErr(c, err)
		return
	}
	writeCSV(c, "attendance-"+from.String()+"-"+to.String()+".csv", records)
}
