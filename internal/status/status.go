// Package status lists the research runs saved under an output directory.
package status

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nescampos/ainalyst/internal/export"
)

var (
	// ErrRunNotFound is returned when no run directory has the given ID.
	ErrRunNotFound = errors.New("status: run not found")

	// ErrReportMissing is returned when a run directory has no markdown
	// report.
	ErrReportMissing = errors.New("status: report not found")
)

// RunSummary describes one saved run. Runs written before manifests
// existed only carry ID, Name, CreatedAt and ReportPath.
type RunSummary struct {
	ID           string    `json:"id"` // directory name
	Name         string    `json:"name"`
	Query        string    `json:"query,omitempty"`
	RunID        string    `json:"runId,omitempty"`
	Capability   string    `json:"capability,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	Slides       int       `json:"slides"`
	Degradations int       `json:"degradations"`
	Issues       int       `json:"issues"`
	ReportPath   string    `json:"reportPath,omitempty"`
	DeckPath     string    `json:"deckPath,omitempty"`
	HasManifest  bool      `json:"hasManifest"`
}

// RunDetail is a summary plus the report text.
type RunDetail struct {
	RunSummary
	Report string `json:"report"`
}

// ListRuns returns every run under outputDir, newest first. A missing
// directory yields an empty list.
func ListRuns(outputDir string) ([]RunSummary, error) {
	entries, err := os.ReadDir(outputDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []RunSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("status: read %s: %w", outputDir, err)
	}

	runs := []RunSummary{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		runs = append(runs, summarize(filepath.Join(outputDir, entry.Name()), info))
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

// LoadRun returns the summary and report text of the run stored in
// outputDir/id.
func LoadRun(outputDir, id string) (*RunDetail, error) {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	dir := filepath.Join(outputDir, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}

	sum := summarize(dir, info)
	if sum.ReportPath == "" {
		return nil, fmt.Errorf("%w: %q", ErrReportMissing, id)
	}
	data, err := os.ReadFile(sum.ReportPath)
	if err != nil {
		return nil, fmt.Errorf("status: read report: %w", err)
	}
	return &RunDetail{RunSummary: sum, Report: string(data)}, nil
}

func summarize(dir string, info fs.FileInfo) RunSummary {
	id := filepath.Base(dir)
	sum := RunSummary{
		ID:        id,
		Name:      strings.ReplaceAll(id, "_", " "),
		CreatedAt: info.ModTime(),
	}

	m, err := export.ReadManifest(dir)
	if err != nil {
		sum.ReportPath = firstWithExt(dir, ".md")
		sum.DeckPath = firstWithExt(dir, ".json")
		return sum
	}

	sum.HasManifest = true
	sum.Name = m.Query
	sum.Query = m.Query
	sum.RunID = m.RunID
	sum.Capability = m.Capability
	sum.Slides = m.Slides
	sum.Degradations = len(m.Degradations)
	sum.Issues = len(m.Issues)
	if ts, err := time.Parse(time.RFC3339, m.StartedAt); err == nil {
		sum.CreatedAt = ts
	}
	sum.ReportPath = inRunDir(dir, m.Files.Report)
	sum.DeckPath = inRunDir(dir, m.Files.DeckJSON)
	return sum
}

// inRunDir joins a manifest file name onto dir. Anything but a bare file
// name is ignored so a manifest cannot point outside its run directory.
func inRunDir(dir, name string) string {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return ""
	}
	return filepath.Join(dir, name)
}

// firstWithExt returns the first file in dir, by name, with the extension,
// skipping the manifest.
func firstWithExt(dir, ext string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == export.ManifestFile {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}
