package handler

import (
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/cronhost/internal/usecase"
	"github.com/gin-gonic/gin"
)

type StatusHandler struct {
	facade *usecase.Facade
	logger *slog.Logger
}

func NewStatusHandler(facade *usecase.Facade, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{facade: facade, logger: logger.With("component", "status_handler")}
}

func (h *StatusHandler) Get(c *gin.Context) {
	status, err := h.facade.Status(c.Request.Context())
	if err != nil {
		h.logger.Error("status query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status unavailable"})
		return
	}
	c.JSON(http.StatusOK, status)
}
