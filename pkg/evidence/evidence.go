package evidence

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zen-systems/routecheck/pkg/oracle"
	"github.com/zen-systems/routecheck/pkg/report"
)

// Writer persists run artifacts under baseDir/<runID>. Each run gets its
// own directory; nothing outside it is touched.
type Writer struct {
	baseDir string
	runDir  string
}

// NewWriter creates a writer rooted at baseDir/runID.
func NewWriter(baseDir, runID string) (*Writer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, err
	}
	return &Writer{baseDir: baseDir, runDir: runDir}, nil
}

// RunDir returns the run directory path.
func (w *Writer) RunDir() string {
	return w.runDir
}

// WriteReport writes the canonical report.json.
func (w *Writer) WriteReport(r *oracle.Report) error {
	data, err := report.Encode(r)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.runDir, "report.json"), data, 0644)
}

// WriteRendered writes an already rendered form next to report.json,
// named by format.
func (w *Writer) WriteRendered(format report.Format, data []byte) error {
	return os.WriteFile(filepath.Join(w.runDir, fileName(format)), data, 0644)
}

func fileName(format report.Format) string {
	switch format {
	case report.FormatMarkdown:
		return "report.md"
	case report.FormatText:
		return "report.txt"
	}
	return "report.json"
}
