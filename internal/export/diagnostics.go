package export

import (
	"path/filepath"

	"pulse-go/internal/models"
)

// WriteDiagnostics writes the run summary into dir.
func WriteDiagnostics(dir string, d models.Diagnostics) (string, error) {
	path := filepath.Join(dir, DiagnosticsFile)
	return path, WriteJSON(path, d)
}
