package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/cronhost/internal/domain"
	"github.com/ErlanBelekov/cronhost/internal/engine"
	"github.com/ErlanBelekov/cronhost/internal/usecase"
	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	facade *usecase.Facade
	logger *slog.Logger
}

func NewJobHandler(facade *usecase.Facade, logger *slog.Logger) *JobHandler {
	return &JobHandler{facade: facade, logger: logger.With("component", "job_handler")}
}

type addJobRequest struct {
	Name           string   `json:"name"            binding:"required,max=256"`
	Cron           string   `json:"cron"            binding:"required"`
	Command        string   `json:"command"         binding:"required"`
	WorkingDir     string   `json:"working_dir"`
	TimeoutSeconds int      `json:"timeout_seconds" binding:"omitempty,min=1"`
	Tags           []string `json:"tags"`
	Enabled        *bool    `json:"enabled"`
}

func (h *JobHandler) Create(c *gin.Context) {
	var req addJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.facade.AddJob(c.Request.Context(), usecase.AddJobInput{
		Name:           req.Name,
		Cron:           req.Cron,
		Command:        req.Command,
		WorkingDir:     req.WorkingDir,
		TimeoutSeconds: req.TimeoutSeconds,
		Tags:           req.Tags,
		Enabled:        req.Enabled,
	})
	if err != nil {
		h.writeJobError(c, "add job", err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

func (h *JobHandler) List(c *gin.Context) {
	var filter domain.JobFilter
	filter.Tag = c.Query("tag")
	if v := c.Query("enabled"); v != "" {
		enabled := v == "true"
		filter.Enabled = &enabled
	}

	jobs, err := h.facade.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list jobs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *JobHandler) Get(c *gin.Context) {
	name := c.Param("name")

	job, err := h.facade.GetJob(c.Request.Context(), name)
	if err != nil {
		h.writeJobError(c, "get job", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type updateJobRequest struct {
	Cron           *string  `json:"cron"`
	Command        *string  `json:"command"`
	WorkingDir     *string  `json:"working_dir"`
	TimeoutSeconds *int     `json:"timeout_seconds"`
	Tags           []string `json:"tags"`
	Enabled        *bool    `json:"enabled"`
}

func (h *JobHandler) Update(c *gin.Context) {
	name := c.Param("name")

	var req updateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.facade.UpdateJob(c.Request.Context(), name, domain.JobPatch{
		Cron:           req.Cron,
		Command:        req.Command,
		WorkingDir:     req.WorkingDir,
		TimeoutSeconds: req.TimeoutSeconds,
		Tags:           req.Tags,
		Enabled:        req.Enabled,
	})
	if err != nil {
		h.writeJobError(c, "update job", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) Enable(c *gin.Context) {
	job, err := h.facade.EnableJob(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeJobError(c, "enable job", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) Disable(c *gin.Context) {
	job, err := h.facade.DisableJob(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeJobError(c, "disable job", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) Delete(c *gin.Context) {
	purge := c.Query("purge_runs") == "true"

	if err := h.facade.DeleteJob(c.Request.Context(), c.Param("name"), purge); err != nil {
		h.writeJobError(c, "delete job", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobHandler) Trigger(c *gin.Context) {
	run, err := h.facade.Trigger(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeJobError(c, "trigger job", err)
		return
	}
	c.JSON(http.StatusAccepted, run)
}

type validateCronRequest struct {
	Cron string `json:"cron" binding:"required"`
}

func (h *JobHandler) ValidateCron(c *gin.Context) {
	var req validateCronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.facade.ValidateCron(req.Cron); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (h *JobHandler) ListTags(c *gin.Context) {
	tags, err := h.facade.ListTags(c.Request.Context())
	if err != nil {
		h.logger.Error("list tags", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (h *JobHandler) writeJobError(c *gin.Context, op string, err error) {
	var cronErr *domain.InvalidCronError
	switch {
	case errors.As(err, &cronErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": cronErr.Error()})
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
	case errors.Is(err, domain.ErrDuplicateName):
		c.JSON(http.StatusConflict, gin.H{"error": errDuplicateName})
	case errors.Is(err, domain.ErrInvalidTimeout):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": errAlreadyRunning})
	default:
		h.logger.Error(op, "job_name", c.Param("name"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
