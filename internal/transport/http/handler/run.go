package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/domain"
	"github.com/ErlanBelekov/cronhost/internal/usecase"
	"github.com/gin-gonic/gin"
)

type RunHandler struct {
	facade *usecase.Facade
	logger *slog.Logger
}

func NewRunHandler(facade *usecase.Facade, logger *slog.Logger) *RunHandler {
	return &RunHandler{facade: facade, logger: logger.With("component", "run_handler")}
}

func (h *RunHandler) List(c *gin.Context) {
	filter := domain.RunFilter{
		JobName:    c.Query("job_name"),
		FailedOnly: c.Query("failed_only") == "true",
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	runs, err := h.facade.ListRuns(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *RunHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.facade.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errRunNotFound})
			return
		}
		h.logger.Error("get run", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *RunHandler) Purge(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("older_than_days", "30"))
	if err != nil || days < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid older_than_days"})
		return
	}

	n, err := h.facade.PurgeRuns(c.Request.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		h.logger.Error("purge runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, gin.H{"purged": n})
}

func (h *RunHandler) LastForJob(c *gin.Context) {
	run, err := h.facade.LastRunFor(c.Request.Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errRunNotFound})
			return
		}
		h.logger.Error("last run for", "job_name", c.Param("name"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, run)
}
