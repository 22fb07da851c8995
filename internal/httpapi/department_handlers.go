package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type departmentRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) listDepartments(c *gin.Context) {
	list, err := s.Depts.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getDepartment(c *gin.Context) {
	d, err := s.Depts.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) createDepartment(c *gin.Context) {
	var req departmentRequest
	if !s.bindJSON(c, &req) {
		return
	}
	d, err := s.Depts.Create(c.Request.Context(), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (s *Server) renameDepartment(c *gin.Context) {
	var req departmentRequest
	if !s.bindJSON(c, &req) {
		return
	}
	res, err := s.Depts.Rename(c.Request.Context(), c.Param("name"), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) deleteDepartment(c *gin.Context) {
	if err := s.Depts.Delete(c.Request.Context(), c.Param("name")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Department deleted"})
}
