package rest

import (
	"net/http"

	"github.com/KevinKickass/railboard/internal/identity"
	"github.com/KevinKickass/railboard/internal/types"
	"github.com/gin-gonic/gin"
)

// GET /api/v1/circuits/:id
func (s *Server) getCircuit(c *gin.Context) {
	detail, err := s.lm.Session().Circuit(c.Param("id"))
	if err != nil {
		s.respondError(c, "Circuit not available", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GET /api/v1/circuits/:id/audit
func (s *Server) getCircuitAudit(c *gin.Context) {
	trail, err := s.lm.Session().AuditTrail(c.Param("id"))
	if err != nil {
		s.respondError(c, "Audit trail not available", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"circuit_id": c.Param("id"),
		"entries":    trail,
		"count":      len(trail),
	})
}

// PATCH /api/v1/circuits/:id/fields/:field
func (s *Server) updateCircuitField(c *gin.Context) {
	var req struct {
		Value *string `json:"value" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeBadRequest, "Invalid request body", err.Error()))
		return
	}

	up, err := s.lm.Session().CommitField(c.Request.Context(), identity.Editor(c), c.Param("id"), c.Param("field"), *req.Value)
	if err != nil {
		s.respondError(c, "Failed to update circuit", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"circuit":     up.Circuit,
		"duration":    up.Circuit.Duration(),
		"audit_entry": up.Entry,
		"version":     up.Version,
	})
}

// PUT /api/v1/circuits/:id/status
func (s *Server) updateCircuitStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeBadRequest, "Invalid request body", err.Error()))
		return
	}

	up, err := s.lm.Session().UpdateStatus(c.Request.Context(), identity.Editor(c), c.Param("id"), req.Status)
	if err != nil {
		s.respondError(c, "Failed to update status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"circuit":     up.Circuit,
		"audit_entry": up.Entry,
		"version":     up.Version,
	})
}
