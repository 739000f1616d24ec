package services

import (
	"go.uber.org/zap"

	"pulse-go/internal/models"
)

// AlertNotifier reports HRV alerts of a run. It only logs; delivery to a
// person is left to whoever tails the warn log.
type AlertNotifier struct {
	log *zap.Logger
}

func NewAlertNotifier(log *zap.Logger) *AlertNotifier {
	return &AlertNotifier{log: log}
}

// Notify logs one warning per alerted row and returns how many there were.
func (n *AlertNotifier) Notify(runID string, rows []models.FeatureRow, t models.Thresholds) int {
	count := 0
	for _, r := range rows {
		if r.Alert != models.LabelAlert {
			continue
		}
		count++
		n.log.Warn("HRV alert",
			zap.String("run_id", runID),
			zap.String("source", r.Source),
			zap.String("patient", r.Patient),
			zap.Time("recorded_at", r.RecordedAt),
			zap.Float64("rmssd", r.Stats.RMSSD),
			zap.Float64("rmssd_limit", t.RMSSD),
			zap.Float64("pnn50", r.Stats.PNN50),
			zap.Float64("pnn50_limit", t.PNN50),
			zap.Float64("sdnn", r.Stats.SDNN),
			zap.Float64("sdnn_limit", t.SDNN),
		)
	}
	return count
}
