package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pulse-go/internal/export"
	"pulse-go/internal/models"
	"pulse-go/internal/repository"
)

// ECGHandler serves the features table and run diagnostics.
type ECGHandler struct {
	log   *zap.Logger
	store *repository.RunStore
}

func NewECGHandler(log *zap.Logger, store *repository.RunStore) *ECGHandler {
	return &ECGHandler{log: log, store: store}
}

// ListFeatures returns every row of the latest run. ?alert=true keeps only
// alerted rows and ?arrays=true includes the intermediate arrays.
func (h *ECGHandler) ListFeatures(c *gin.Context) {
	snap, ok := h.store.Latest()
	if !ok {
		noRunYet(c)
		return
	}
	onlyAlerts := c.Query("alert") == "true"
	withArrays := c.Query("arrays") == "true"

	views := make([]export.FeatureView, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		if onlyAlerts && r.Alert != models.LabelAlert {
			continue
		}
		views = append(views, export.NewFeatureView(r, withArrays))
	}
	c.JSON(http.StatusOK, gin.H{
		"runId":      snap.Diagnostics.RunID,
		"thresholds": snap.Diagnostics.Thresholds,
		"features":   views,
	})
}

// GetFeature returns one row, arrays included.
func (h *ECGHandler) GetFeature(c *gin.Context) {
	source := c.Param("source")
	row, ok := h.store.Feature(source)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No feature row for " + source})
		return
	}
	c.JSON(http.StatusOK, export.NewFeatureView(row, true))
}

// Diagnostics returns the summary of the latest run.
func (h *ECGHandler) Diagnostics(c *gin.Context) {
	snap, ok := h.store.Latest()
	if !ok {
		noRunYet(c)
		return
	}
	c.JSON(http.StatusOK, snap.Diagnostics)
}

func noRunYet(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No run has completed yet"})
}
