package rest

import (
	"net/http"

	"github.com/KevinKickass/railboard/internal/identity"
	"github.com/KevinKickass/railboard/internal/types"
	"github.com/gin-gonic/gin"
)

// GET /api/v1/board
func (s *Server) getBoard(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.Session().Snapshot())
}

// GET /api/v1/board/edit-mode
func (s *Server) getEditMode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": s.lm.Session().EditMode()})
}

// PUT /api/v1/board/edit-mode
func (s *Server) setEditMode(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeBadRequest, "Invalid request body", err.Error()))
		return
	}

	s.lm.Session().SetEditMode(identity.Editor(c), *req.Enabled)
	c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}

// POST /api/v1/board/reorder
func (s *Server) reorderBoard(c *gin.Context) {
	var req struct {
		Source      *int `json:"source" binding:"required"`
		Destination *int `json:"destination" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeBadRequest, "Invalid request body", err.Error()))
		return
	}

	sess := s.lm.Session()
	changed, err := sess.Reorder(c.Request.Context(), identity.Editor(c), *req.Source, *req.Destination)
	if err != nil {
		s.respondError(c, "Failed to reorder board", err)
		return
	}

	view := sess.Snapshot()
	order := make([]string, len(view.Rows))
	for i, r := range view.Rows {
		order[i] = r.ID
	}

	c.JSON(http.StatusOK, gin.H{
		"changed": changed,
		"order":   order,
		"version": view.Version,
	})
}

// POST /api/v1/board/resync
func (s *Server) resyncBoard(c *gin.Context) {
	queued, err := s.lm.Session().Resync(c.Request.Context())
	if err != nil {
		s.respondError(c, "Failed to resync board", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Resync queued",
		"queued":  queued,
	})
}
