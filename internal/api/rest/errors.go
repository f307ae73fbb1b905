package rest

import (
	"errors"
	"net/http"

	"github.com/KevinKickass/railboard/internal/board"
	"github.com/KevinKickass/railboard/internal/session"
	"github.com/KevinKickass/railboard/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps board errors onto HTTP statuses and the error envelope.
func (s *Server) respondError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, session.ErrEditModeDisabled):
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.CodeForbidden, message, err.Error()))
	case errors.Is(err, board.ErrRowNotFound):
		s.logger.Warn("Request referenced unknown circuit",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodeNotFound, message, err.Error()))
	case errors.Is(err, board.ErrInvalidTimestamp),
		errors.Is(err, board.ErrInvalidStatus),
		errors.Is(err, board.ErrIndexOutOfRange),
		errors.Is(err, board.ErrUnknownField):
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeBadRequest, message, err.Error()))
	default:
		s.logger.Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeInternal, message, err.Error()))
	}
}
