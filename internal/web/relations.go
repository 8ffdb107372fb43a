package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rcliao/ddltrack/internal/domain"
)

func isExists(err error) bool {
	return errors.Is(err, domain.ErrTaskExists)
}

// Relationship handlers

func (s *Server) handleSetParent(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}

	var req struct {
		ParentID string `json:"parentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.ParentID != "" {
		if _, ok := s.tasks.GetByID(req.ParentID); !ok {
			fail(c, http.StatusNotFound, "parent not found")
			return
		}
	}

	ok, err := s.tasks.SetParent(c.Param("id"), req.ParentID)
	finish(c, ok, err)
}

func (s *Server) handleGetParent(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}
	parent, ok := s.tasks.GetParent(c.Param("id"))
	if !ok {
		fail(c, http.StatusNotFound, "task has no parent")
		return
	}
	respond(c, http.StatusOK, parent)
}

func (s *Server) handleGetChildren(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}
	respond(c, http.StatusOK, s.tasks.GetChildren(c.Param("id")))
}

func (s *Server) handleReorderChildren(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}

	var req struct {
		ChildIDs []string `json:"childIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := s.tasks.ReorderChildren(c.Param("id"), req.ChildIDs)
	finish(c, ok, err)
}

func (s *Server) handleGetDependencies(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}
	respond(c, http.StatusOK, s.tasks.GetDependencies(c.Param("id")))
}

func (s *Server) handleGetDependents(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}
	respond(c, http.StatusOK, s.tasks.GetDependents(c.Param("id")))
}

func (s *Server) handleAddDependency(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}
	if _, ok := s.tasks.GetByID(c.Param("dep")); !ok {
		fail(c, http.StatusNotFound, "dependency not found")
		return
	}
	ok, err := s.tasks.AddDependency(c.Param("id"), c.Param("dep"))
	finish(c, ok, err)
}

func (s *Server) handleRemoveDependency(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}
	ok, err := s.tasks.RemoveDependency(c.Param("id"), c.Param("dep"))
	finish(c, ok, err)
}

func (s *Server) handleCanDelete(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}
	respond(c, http.StatusOK, gin.H{"canDelete": s.tasks.CanDeleteSafely(c.Param("id"))})
}

func (s *Server) handleRoots(c *gin.Context) {
	respond(c, http.StatusOK, s.tasks.GetRoots())
}
