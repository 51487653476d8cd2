package jobs

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldocs-backend/internal/analysis"
	"legaldocs-backend/internal/documents"
	"legaldocs-backend/internal/shared/server/respond"
)

// StatusReader reports the processing status of a document.
type StatusReader interface {
	Status(ctx context.Context, documentID string) (analysis.StatusUpdate, error)
}

// Handler wires HTTP handlers to the scheduler.
type Handler struct {
	Sched    *Scheduler
	Statuses StatusReader
}

// NewHandler constructs a Handler.
func NewHandler(sched *Scheduler, statuses StatusReader) *Handler {
	return &Handler{Sched: sched, Statuses: statuses}
}

// RegisterRoutes attaches job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/jobs", h.schedule)
	rg.GET("/jobs/:id", h.status)
	rg.DELETE("/jobs/:id", h.cancel)
	rg.POST("/documents/:id/analyze", h.analyze)
	rg.POST("/documents/compare", h.compare)
	rg.GET("/documents/:id/status", h.processingStatus)
}

type scheduleRequest struct {
	Kind        string   `json:"kind" binding:"required"`
	DocumentIDs []string `json:"documentIds" binding:"required"`
}

func (h *Handler) schedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	h.dispatch(c, req.Kind, req.DocumentIDs)
}

func (h *Handler) analyze(c *gin.Context) {
	h.dispatch(c, KindAnalysis, []string{c.Param("id")})
}

type compareRequest struct {
	FirstID  string `json:"firstId" binding:"required"`
	SecondID string `json:"secondId" binding:"required"`
}

func (h *Handler) compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	h.dispatch(c, KindComparison, []string{req.FirstID, req.SecondID})
}

func (h *Handler) dispatch(c *gin.Context, kind string, subjectIDs []string) {
	job, err := h.Sched.Schedule(c.Request.Context(), kind, subjectIDs)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrClosed):
			respond.Error(c, http.StatusServiceUnavailable, "shutting_down", "scheduler is shutting down", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "schedule_failed", err.Error(), nil)
		}
		return
	}
	c.Set("jobId", job.ID)
	respond.JSON(c, http.StatusAccepted, job)
}

func (h *Handler) status(c *gin.Context) {
	job, err := h.Sched.Status(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "fetch_failed", err.Error(), nil)
		return
	}
	respond.OK(c, job)
}

func (h *Handler) cancel(c *gin.Context) {
	if err := h.Sched.Cancel(c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "cancel_failed", err.Error(), nil)
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{"id": c.Param("id"), "cancelled": true})
}

func (h *Handler) processingStatus(c *gin.Context) {
	update, err := h.Statuses.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "fetch_failed", err.Error(), nil)
		return
	}
	respond.OK(c, update)
}
