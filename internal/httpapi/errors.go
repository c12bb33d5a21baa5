package httpapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"studentmanagement/internal/apperr"
	"studentmanagement/internal/ledger"
)

// respondErr maps service errors to HTTP statuses. Unclassified errors hide
// their detail behind a generic 500 body.
func respondErr(c *gin.Context, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.KindAuthentication:
		status = http.StatusUnauthorized
	case apperr.KindAuthorization:
		status = http.StatusForbidden
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindDuplicate:
		status = http.StatusConflict
	case apperr.KindTransient:
		status = http.StatusServiceUnavailable
	default:
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{"error": err.Error()}
	if fields := apperr.FieldsOf(err); len(fields) > 0 {
		body["fields"] = fields
	}
	c.JSON(status, body)
}

// queryRange reads the from/to query params. Both are required; the
// services reject zero dates anyway, this just gives a clearer message.
func queryRange(c *gin.Context) (ledger.Date, ledger.Date, error) {
	from, err := ledger.ParseDate(c.Query("from"))
	if err != nil {
		return ledger.Date{}, ledger.Date{}, apperr.Validation("invalid date range",
			apperr.FieldError{Field: "from", Error: "want YYYY-MM-DD"})
	}
	to, err := ledger.ParseDate(c.Query("to"))
	if err != nil {
		return ledger.Date{}, ledger.Date{}, apperr.Validation("invalid date range",
			apperr.FieldError{Field: "to", Error: "want YYYY-MM-DD"})
	}
	return from, to, nil
}

// defaultRange is the dashboard window used when no explicit range is given.
func defaultRange() (ledger.Date, ledger.Date) {
	to := ledger.Today()
	return to.AddDays(-29), to
}
