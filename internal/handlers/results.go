package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pulse-go/internal/config"
	"pulse-go/internal/export"
	"pulse-go/internal/nudges"
	"pulse-go/internal/repository"
	"pulse-go/internal/utils"
)

// ResultsHandler serves the presentation artifacts: charts, weekly nudges
// and the externally hosted dashboards.
type ResultsHandler struct {
	log        *zap.Logger
	store      *repository.RunStore
	dashboards func() []config.DashboardConfig
}

func NewResultsHandler(log *zap.Logger, store *repository.RunStore, dashboards func() []config.DashboardConfig) *ResultsHandler {
	return &ResultsHandler{log: log, store: store, dashboards: dashboards}
}

// Chart returns one ECharts option document.
func (h *ResultsHandler) Chart(c *gin.Context) {
	name := c.Param("name")
	doc, ok := h.store.Chart(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown chart " + name})
		return
	}
	c.JSON(http.StatusOK, doc)
}

type weekView struct {
	Week         string              `json:"week"`
	Scores       map[string]*float64 `json:"scores"`
	TrendSummary string              `json:"trendSummary"`
	Nudge        string              `json:"nudge"`
}

func newWeekView(w nudges.Week) weekView {
	v := weekView{
		Week:         w.Start.Format(time.DateOnly),
		Scores:       make(map[string]*float64, len(w.Scores)),
		TrendSummary: w.Summary,
		Nudge:        w.Nudge,
	}
	for label, z := range w.Scores {
		v.Scores[label] = export.Nullable(z)
	}
	return v
}

// Nudges returns the weekly nudge table, or one week with ?week=YYYY-MM-DD
// (a Monday).
func (h *ResultsHandler) Nudges(c *gin.Context) {
	snap, ok := h.store.Latest()
	if !ok {
		noRunYet(c)
		return
	}

	if q := c.Query("week"); q != "" {
		start, ok := utils.ParseWeek(q)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "week must be a Monday as YYYY-MM-DD"})
			return
		}
		w, ok := snap.Nudges.Lookup(start)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "No nudges for week " + q})
			return
		}
		c.JSON(http.StatusOK, newWeekView(w))
		return
	}

	weeks := make([]weekView, len(snap.Nudges.Weeks))
	for i, w := range snap.Nudges.Weeks {
		weeks[i] = newWeekView(w)
	}
	c.JSON(http.StatusOK, gin.H{"labels": snap.Nudges.Labels, "weeks": weeks})
}

// Dashboards lists the externally hosted dashboard views.
func (h *ResultsHandler) Dashboards(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"dashboards": h.dashboards()})
}

// Health reports liveness and the id of the latest run, if any.
func (h *ResultsHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok", "lastRun": nil}
	if snap, ok := h.store.Latest(); ok {
		body["lastRun"] = snap.Diagnostics.RunID
		body["alerts"] = snap.Diagnostics.Alerts
	}
	c.JSON(http.StatusOK, body)
}
