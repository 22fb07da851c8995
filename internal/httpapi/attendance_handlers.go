package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studentrecords/internal/attendance"
)

type attendanceBatch struct {
	Data []attendance.Entry `json:"data" binding:"required,min=1,dive"`
}

type dateURI struct {
	Date string `uri:"date" binding:"required,calendardate"`
}

type presenceURI struct {
	Date      string `uri:"date" binding:"required,calendardate"`
	StudentID string `uri:"student_id" binding:"required,uuid"`
}

type presenceBody struct {
	Present *attendance.Presence `json:"present" binding:"required"`
}

func (s *Server) listAttendance(c *gin.Context) {
	recs, err := s.Attendance.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (s *Server) recordAttendance(c *gin.Context) {
	var req attendanceBatch
	if !s.bindJSON(c, &req) {
		return
	}
	recs, err := s.Attendance.Record(c.Request.Context(), req.Data)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Attendance recorded", "count": len(recs)})
}

func (s *Server) attendanceByDate(c *gin.Context) {
	var uri dateURI
	if !s.bindURI(c, &uri) {
		return
	}
	day, _ := attendance.ParseDate(uri.Date)
	recs, err := s.Attendance.ByDate(c.Request.Context(), day)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (s *Server) attendanceByStudent(c *gin.Context) {
	recs, err := s.Attendance.ByStudent(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (s *Server) updateAttendance(c *gin.Context) {
	var uri presenceURI
	if !s.bindURI(c, &uri) {
		return
	}
	var body presenceBody
	if !s.bindJSON(c, &body) {
		return
	}
	day, _ := attendance.ParseDate(uri.Date)
	if err := s.Attendance.SetPresence(c.Request.Context(), day, uri.StudentID, *body.Present); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance data updated successfully"})
}
