package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentmanagement/internal/account"
	"studentmanagement/internal/config"
	"studentmanagement/internal/httpapi"
	"studentmanagement/internal/ledger"
	"studentmanagement/internal/roster"
	"studentmanagement/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.App {
	return config.App{
		Env:             "test",
		JWTIssuer:       "studentmanagement-test",
		JWTSigningKey:   "test-signing-key",
		AccessTTL:       time.Minute,
		RefreshTTL:      time.Hour,
		RateLimitPerMin: 1000,
	}
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	mem := store.NewMemory()
	accounts := account.NewService(mem)
	rosterP := roster.NewProvider(mem, mem)
	ledgerS := ledger.NewService(mem, rosterP, nil)
	require.NoError(t, accounts.EnsureAdmin(context.Background(), "admin", "bootstrap-secret"))
	return httpapi.New(testConfig(), accounts, rosterP, ledgerS, nil, nil).Router()
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func login(t *testing.T, r *gin.Engine, username, password string) string {
	t.Helper()
	w := do(t, r, http.MethodPost, "/v1/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["access_token"].(string)
}

// seed builds the usual school: one teacher owning one class with one
// enrolled student, and returns their tokens plus the class id.
func seed(t *testing.T, r *gin.Engine) (adminTok, teacherTok, studentTok, classID, studentID string) {
	t.Helper()
	adminTok = login(t, r, "admin", "bootstrap-secret")

	w := do(t, r, http.MethodPost, "/v1/admin/teachers", adminTok, gin.H{
		"username": "turing", "password": "password123", "first_name": "Alan", "last_name": "Turing",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	teacherID := decode(t, w)["id"].(string)

	w = do(t, r, http.MethodPost, "/v1/admin/students", adminTok, gin.H{
		"username": "lovelace", "password": "password123", "first_name": "Ada", "last_name": "Lovelace",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	studentID = decode(t, w)["id"].(string)

	w = do(t, r, http.MethodPost, "/v1/admin/classes", adminTok, gin.H{"name": "Mathematics"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	classID = decode(t, w)["id"].(string)

	w = do(t, r, http.MethodPost, "/v1/admin/classes/"+classID+"/teacher/"+teacherID, adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/v1/admin/students/"+studentID+"/class/"+classID, adminTok, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	teacherTok = login(t, r, "turing", "password123")
	studentTok = login(t, r, "lovelace", "password123")
	return
}

func TestLoginFailures(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, http.MethodPost, "/v1/auth/login", "", gin.H{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/v1/auth/login", "", gin.H{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshFlow(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, http.MethodPost, "/v1/auth/login", "", gin.H{"username": "admin", "password": "bootstrap-secret"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	refreshTok := body["refresh_token"].(string)
	accessTok := body["access_token"].(string)

	w = do(t, r, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": refreshTok})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["access_token"])

	// Access tokens are not valid refresh tokens.
	w = do(t, r, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": accessTok})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Refresh tokens are not valid bearer tokens.
	w = do(t, r, http.MethodGet, "/v1/admin/classes", refreshTok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAttendanceFlow(t *testing.T) {
	r := newRouter(t)
	_, teacherTok, studentTok, classID, studentID := seed(t, r)

	// First mark creates.
	w := do(t, r, http.MethodPost, "/v1/teacher/classes/"+classID+"/attendance", teacherTok, gin.H{
		"student_id": studentID, "date": "2026-08-20", "present": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Same triple again updates in place.
	w = do(t, r, http.MethodPost, "/v1/teacher/classes/"+classID+"/attendance", teacherTok, gin.H{
		"student_id": studentID, "date": "2026-08-20", "present": false, "remarks": "sick",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["created"])

	// The student sees exactly one record for that day.
	w = do(t, r, http.MethodGet, "/v1/student/attendance?from=2026-08-20&to=2026-08-20", studentTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	records := body["records"].([]any)
	require.Len(t, records, 1)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(0), summary["percentage"])
}

func TestBatchMark(t *testing.T) {
	r := newRouter(t)
	adminTok, teacherTok, _, classID, studentID := seed(t, r)

	// A second enrolled student.
	w := do(t, r, http.MethodPost, "/v1/admin/students", adminTok, gin.H{
		"username": "hopper", "password": "password123", "first_name": "Grace", "last_name": "Hopper",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	otherID := decode(t, w)["id"].(string)
	w = do(t, r, http.MethodPost, "/v1/admin/students/"+otherID+"/class/"+classID, adminTok, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodPost, "/v1/teacher/classes/"+classID+"/attendance/batch", teacherTok, gin.H{
		"date": "2026-08-21",
		"items": []gin.H{
			{"student_id": studentID, "present": true},
			{"student_id": "stu-unknown", "present": true},
			{"student_id": otherID, "present": false},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	outcomes := decode(t, w)["outcomes"].([]any)
	require.Len(t, outcomes, 3)
	assert.Equal(t, "created", outcomes[0].(map[string]any)["status"])
	assert.Equal(t, "error", outcomes[1].(map[string]any)["status"])
	assert.Equal(t, "created", outcomes[2].(map[string]any)["status"])
}

func TestRoleBoundaries(t *testing.T) {
	r := newRouter(t)
	adminTok, _, studentTok, classID, studentID := seed(t, r)

	// No token at all.
	w := do(t, r, http.MethodGet, "/v1/admin/classes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Students cannot reach teacher or admin surfaces.
	w = do(t, r, http.MethodGet, "/v1/teacher/classes", studentTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, r, http.MethodGet, "/v1/admin/classes", studentTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Admins read attendance but do not record it.
	w = do(t, r, http.MethodGet, "/v1/admin/students/"+studentID+"/attendance?from=2026-08-01&to=2026-08-31", adminTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodPost, "/v1/teacher/classes/"+classID+"/attendance", adminTok, gin.H{
		"student_id": studentID, "date": "2026-08-20", "present": true,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A second teacher cannot touch a colleague's class.
	w = do(t, r, http.MethodPost, "/v1/admin/teachers", adminTok, gin.H{
		"username": "rival", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	rivalTok := login(t, r, "rival", "password123")
	w = do(t, r, http.MethodPost, "/v1/teacher/classes/"+classID+"/attendance", rivalTok, gin.H{
		"student_id": studentID, "date": "2026-08-20", "present": true,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, r, http.MethodGet, "/v1/teacher/classes/"+classID+"/students", rivalTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStudentProfileAndExport(t *testing.T) {
	r := newRouter(t)
	_, teacherTok, studentTok, classID, studentID := seed(t, r)

	w := do(t, r, http.MethodGet, "/v1/student/profile", studentTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Mathematics", body["class"].(map[string]any)["name"])

	phone := "555-0100"
	w = do(t, r, http.MethodPut, "/v1/student/profile", studentTok, gin.H{"phone": phone})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, phone, decode(t, w)["phone"])

	w = do(t, r, http.MethodPost, "/v1/teacher/classes/"+classID+"/attendance", teacherTok, gin.H{
		"student_id": studentID, "date": "2026-08-20", "present": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodGet, "/v1/student/attendance/export?from=2026-08-01&to=2026-08-31", studentTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "2026-08-20")
}

func TestAdminDashboard(t *testing.T) {
	r := newRouter(t)
	adminTok, _, _, _, _ := seed(t, r)

	w := do(t, r, http.MethodGet, "/v1/admin/dashboard", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(1), body["students"])
	assert.Equal(t, float64(1), body["teachers"])
	assert.Equal(t, float64(1), body["classes"])
	dist := body["class_distribution"].(map[string]any)
	assert.Equal(t, float64(1), dist["Mathematics"])
}

func TestHealthz(t *testing.T) {
	r := newRouter(t)
	w := do(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
