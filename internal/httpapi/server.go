// Package httpapi exposes the records service over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studentrecords/internal/accounts"
	"studentrecords/internal/analytics"
	"studentrecords/internal/apperr"
	"studentrecords/internal/attendance"
	"studentrecords/internal/auth"
	"studentrecords/internal/authz"
	"studentrecords/internal/department"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// Deps are the collaborators the HTTP layer routes to.
type Deps struct {
	Log        *slog.Logger
	Issuer     *auth.Issuer
	Verifier   *auth.Verifier
	Registry   auth.Registry
	Guard      *authz.Guard
	Accounts   *accounts.Service
	Depts      *department.Service
	Attendance *attendance.Service
	Analytics  *analytics.Engine
	Health     map[string]HealthChecker
}

// Server holds handler dependencies.
type Server struct {
	Deps
}

// New creates a server.
func New(d Deps) *Server {
	return &Server{Deps: d}
}

// Router builds the gin engine. mw runs before every route, after recovery
// and access logging.
func (s *Server) Router(mw ...gin.HandlerFunc) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(mw...)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	access := s.Verifier.Middleware(auth.TokenAccess)
	staff := s.Guard.Role(authz.RoleStaff)
	admin := s.Guard.Role(authz.RoleAdmin)

	r.POST("/login", s.login)
	r.POST("/refresh", s.Verifier.Middleware(auth.TokenRefresh), s.refresh)
	r.POST("/logout", access, s.logout)

	r.POST("/register/student", access, staff, s.registerStudent)
	r.POST("/register/staff", access, admin, s.registerStaff)

	r.GET("/student", access, staff, s.listStudents)
	r.GET("/student/:id", access, s.getStudent)
	r.PUT("/student/:id", access, staff, s.updateStudent)
	r.DELETE("/student/:id", access, staff, s.deleteStudent)

	r.GET("/staff", access, staff, s.listStaff)
	r.GET("/staff/:id", access, staff, s.getStaff)
	r.PUT("/staff/:id", access, staff, s.Guard.OwnerOrAdmin("id"), s.updateStaff)
	r.DELETE("/staff/:id", access, admin, s.deleteStaff)

	r.GET("/attendance", access, staff, s.listAttendance)
	r.POST("/attendance", access, admin, s.recordAttendance)
	r.GET("/attendance/:date", access, admin, s.attendanceByDate)
	r.GET("/attendance/student/:student_id", access, admin, s.attendanceByStudent)
	r.PUT("/attendance/:date/:student_id", access, staff, s.updateAttendance)

	r.GET("/departments", access, staff, s.listDepartments)
	r.POST("/departments", access, admin, s.createDepartment)
	r.GET("/departments/:name", access, staff, s.getDepartment)
	r.PUT("/departments/:name", access, admin, s.renameDepartment)
	r.DELETE("/departments/:name", access, admin, s.deleteDepartment)

	reports := r.Group("/analytics", access, staff)
	reports.GET("/q1", s.yearlyDistribution)
	reports.POST("/q2", s.absentees)
	reports.POST("/q3", s.lowAttendance)
	reports.POST("/q4", s.intakeUtilization)

	return r
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, hc := range s.Health {
		ok := hc.Healthy(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

func (s *Server) fail(c *gin.Context, err error) {
	apperr.Abort(c, s.Log, err)
}

// bindJSON decodes the body into v, rendering a 400 on failure.
func (s *Server) bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		s.fail(c, apperr.Validation(bindMessage(err)))
		return false
	}
	return true
}

func (s *Server) bindURI(c *gin.Context, v any) bool {
	if err := c.ShouldBindUri(v); err != nil {
		s.fail(c, apperr.Validation(bindMessage(err)))
		return false
	}
	return true
}

func identity(c *gin.Context) string {
	claims, _ := auth.ClaimsFrom(c)
	return claims.Subject
}
