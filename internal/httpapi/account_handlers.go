package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studentrecords/internal/accounts"
)

func (s *Server) registerStudent(c *gin.Context) {
	var in accounts.StudentInput
	if !s.bindJSON(c, &in) {
		return
	}
	st, err := s.Accounts.RegisterStudent(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Member registered", "id": st.ID})
}

func (s *Server) registerStaff(c *gin.Context) {
	var in accounts.StaffInput
	if !s.bindJSON(c, &in) {
		return
	}
	st, err := s.Accounts.RegisterStaff(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Member registered", "id": st.ID})
}

func (s *Server) listStudents(c *gin.Context) {
	list, err := s.Accounts.ListStudents(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getStudent(c *gin.Context) {
	st, err := s.Accounts.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) updateStudent(c *gin.Context) {
	var p accounts.StudentPatch
	if !s.bindJSON(c, &p) {
		return
	}
	st, err := s.Accounts.UpdateStudent(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) deleteStudent(c *gin.Context) {
	if err := s.Accounts.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted"})
}

func (s *Server) listStaff(c *gin.Context) {
	list, err := s.Accounts.ListStaff(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getStaff(c *gin.Context) {
	st, err := s.Accounts.GetStaff(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) updateStaff(c *gin.Context) {
	var p accounts.StaffPatch
	if !s.bindJSON(c, &p) {
		return
	}
	st, err := s.Accounts.UpdateStaff(c.Request.Context(), identity(c), c.Param("id"), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member updated successfully", "staff": st})
}

func (s *Server) deleteStaff(c *gin.Context) {
	if err := s.Accounts.DeleteStaff(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Staff deleted"})
}
