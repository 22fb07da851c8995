package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studentrecords/internal/analytics"
	"studentrecords/internal/attendance"
)

type reportRequest struct {
	Date attendance.Date `json:"date"`
	analytics.Filter
}

func (s *Server) yearlyDistribution(c *gin.Context) {
	out, err := s.Analytics.YearlyDistribution(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) absentees(c *gin.Context) {
	var req reportRequest
	if !s.bindJSON(c, &req) {
		return
	}
	out, err := s.Analytics.Absentees(c.Request.Context(), req.Date, req.Filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) lowAttendance(c *gin.Context) {
	var req reportRequest
	if !s.bindJSON(c, &req) {
		return
	}
	out, err := s.Analytics.LowAttendance(c.Request.Context(), req.Date, req.Filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) intakeUtilization(c *gin.Context) {
	var f analytics.Filter
	if c.Request.ContentLength != 0 && !s.bindJSON(c, &f) {
		return
	}
	out, err := s.Analytics.IntakeUtilization(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
