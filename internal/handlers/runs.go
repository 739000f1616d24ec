package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pulse-go/internal/repository"
	"pulse-go/internal/services"
)

// Runner starts a full run.
type Runner interface {
	Run(ctx context.Context) (*repository.Snapshot, error)
}

// RunsHandler lets operators trigger a run on demand.
type RunsHandler struct {
	log    *zap.Logger
	runner Runner
}

func NewRunsHandler(log *zap.Logger, runner Runner) *RunsHandler {
	return &RunsHandler{log: log, runner: runner}
}

// Trigger runs the pipeline synchronously and returns its diagnostics.
func (h *RunsHandler) Trigger(c *gin.Context) {
	snap, err := h.runner.Run(c.Request.Context())
	switch {
	case errors.Is(err, services.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.log.Error("Run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Run failed"})
		return
	}
	c.JSON(http.StatusOK, snap.Diagnostics)
}
