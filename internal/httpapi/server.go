// Package httpapi exposes the service over HTTP with gin. Handlers bind and
// translate; every authorization decision runs inside the services, so a
// missing route guard can narrow the surface but never widen it.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studentmanagement/internal/access"
	"studentmanagement/internal/account"
	"studentmanagement/internal/auth"
	"studentmanagement/internal/cache"
	"studentmanagement/internal/config"
	"studentmanagement/internal/httpmiddleware"
	"studentmanagement/internal/ledger"
	"studentmanagement/internal/roster"
)

// Server wires the HTTP surface over the domain services.
type Server struct {
	cfg      config.App
	accounts *account.Service
	roster   *roster.Provider
	ledger   *ledger.Service
	cache    *cache.Cache
	health   func(ctx context.Context) map[string]bool
	limiter  *httpmiddleware.SimpleTokenBucket
}

// New creates a Server. cache and health may be nil.
func New(cfg config.App, accounts *account.Service, rosterP *roster.Provider, ledgerS *ledger.Service, c *cache.Cache, health func(context.Context) map[string]bool) *Server {
	return &Server{
		cfg:      cfg,
		accounts: accounts,
		roster:   rosterP,
		ledger:   ledgerS,
		cache:    c,
		health:   health,
		limiter:  httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	authGroup := r.Group("/v1/auth")
	authGroup.POST("/login", s.limiter.GinMiddleware(), s.login)
	authGroup.POST("/refresh", s.refresh)

	bearer := auth.Bearer(s.cfg.JWTSigningKey, s.cfg.JWTIssuer)

	admin := r.Group("/v1/admin", bearer, auth.RequireRole(access.RoleAdmin))
	{
		admin.GET("/students", s.adminListUsers(access.RoleStudent))
		admin.POST("/students", s.adminCreateUser(access.RoleStudent))
		admin.GET("/students/:id", s.adminGetUser)
		admin.PUT("/students/:id", s.adminUpdateUser)
		admin.DELETE("/students/:id", s.adminDeleteUser)
		admin.POST("/students/:id/class/:classId", s.adminAssignStudent)
		admin.GET("/students/:id/attendance", s.adminStudentAttendance)

		admin.GET("/teachers", s.adminListUsers(access.RoleTeacher))
		admin.POST("/teachers", s.adminCreateUser(access.RoleTeacher))
		admin.GET("/teachers/:id", s.adminGetUser)
		admin.PUT("/teachers/:id", s.adminUpdateUser)
		admin.DELETE("/teachers/:id", s.adminDeleteUser)

		admin.GET("/classes", s.adminListClasses)
		admin.POST("/classes", s.adminCreateClass)
		admin.GET("/classes/:id", s.adminGetClass)
		admin.PUT("/classes/:id", s.adminUpdateClass)
		admin.DELETE("/classes/:id", s.adminDeleteClass)
		admin.GET("/classes/:id/students", s.adminClassStudents)
		admin.GET("/classes/:id/students/export", s.adminClassStudentsExport)
		admin.POST("/classes/:id/teacher/:teacherId", s.adminAssignTeacher)

		admin.GET("/attendance", s.adminGlobalAttendance)
		admin.DELETE("/attendance/:id", s.adminDeleteAttendance)

		admin.GET("/users/search", s.adminSearchUsers)
		admin.GET("/dashboard", s.adminDashboard)
	}

	teacher := r.Group("/v1/teacher", bearer, auth.RequireRole(access.RoleTeacher))
	{
		teacher.GET("/profile", s.profile)
		teacher.GET("/classes", s.teacherClasses)
		teacher.GET("/classes/:id/students", s.teacherClassStudents)
		teacher.GET("/classes/:id/attendance", s.teacherClassAttendance)
		teacher.POST("/classes/:id/attendance", s.teacherMark)
		teacher.POST("/classes/:id/attendance/batch", s.teacherMarkBatch)
		teacher.GET("/classes/:id/attendance/summary", s.teacherClassSummary)
		teacher.GET("/classes/:id/attendance/export", s.teacherExport)
		teacher.PUT("/attendance/:id", s.teacherUpdateRecord)
		teacher.DELETE("/attendance/:id", s.teacherDeleteRecord)
	}

	student := r.Group("/v1/student", bearer, auth.RequireRole(access.RoleStudent))
	{
		student.GET("/profile", s.studentProfile)
		student.PUT("/profile", s.studentUpdateProfile)
		student.GET("/attendance", s.studentAttendance)
		student.GET("/attendance/summary", s.studentSummary)
		student.GET("/attendance/export", s.studentExport)
	}

	return r
}

func (s *Server) healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	if s.health != nil {
		for name, ok := range s.health(c.Request.Context()) {
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
	}
	c.JSON(status, body)
}

// corsMiddleware handles browser preflight and cross-origin headers.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
