package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nescampos/ainalyst/internal/orchestrator"
	"github.com/nescampos/ainalyst/internal/slides"
)

// ManifestFile is the name of the run summary inside a run directory.
const ManifestFile = "manifest.json"

// Manifest summarizes one run. File paths are relative to the run
// directory.
type Manifest struct {
	RunID        string                        `json:"runId"`
	Query        string                        `json:"query"`
	Capability   string                        `json:"capability"`
	StartedAt    string                        `json:"startedAt"`
	FinishedAt   string                        `json:"finishedAt"`
	SubQuestions []string                      `json:"subQuestions"`
	Slides       int                           `json:"slides"`
	Sections     int                           `json:"sections"`
	Degradations []orchestrator.Degradation    `json:"degradations,omitempty"`
	Issues       []orchestrator.CoherenceIssue `json:"issues,omitempty"`
	Files        ManifestFiles                 `json:"files"`
}

// ManifestFiles names the artifacts written for a run.
type ManifestFiles struct {
	Report   string `json:"report"`
	DeckJSON string `json:"deckJson,omitempty"`
	DeckYAML string `json:"deckYaml,omitempty"`
}

// Degraded reports whether the run recorded any fallback.
func (m *Manifest) Degraded() bool {
	return len(m.Degradations) > 0
}

// NewManifest builds the manifest for a result. Files is left empty.
func NewManifest(res *orchestrator.Result) *Manifest {
	return &Manifest{
		RunID:        res.RunID,
		Query:        res.Query,
		Capability:   res.Capability.String(),
		StartedAt:    res.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:   res.FinishedAt.UTC().Format(time.RFC3339),
		SubQuestions: res.SubQuestions,
		Slides:       len(res.Deck.Slides),
		Sections:     res.Deck.Count(slides.SlideSection),
		Degradations: res.Degradations,
		Issues:       res.Issues,
	}
}

// WriteManifest writes m to dir/manifest.json.
func WriteManifest(dir string, m *Manifest) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: marshal manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestFile)
	if err := writeFile(path, append(data, '\n')); err != nil {
		return "", fmt.Errorf("export: manifest: %w", err)
	}
	return path, nil
}

// ReadManifest loads dir/manifest.json.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("export: read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("export: parse manifest in %s: %w", dir, err)
	}
	return &m, nil
}

// WriteRun writes every artifact of res into its run directory under
// outputDir and returns the manifest along with that directory.
func WriteRun(outputDir string, res *orchestrator.Result) (*Manifest, string, error) {
	dir := RunDir(outputDir, res.Query, res.RunID)
	m := NewManifest(res)

	report, err := WriteReport(dir, res.Query, res.Report)
	if err != nil {
		return nil, "", err
	}
	deckJSON, err := WriteDeckJSON(dir, res.Query, res.Deck)
	if err != nil {
		return nil, "", err
	}
	deckYAML, err := WriteDeckYAML(dir, res.Query, res.Deck)
	if err != nil {
		return nil, "", err
	}
	m.Files = ManifestFiles{
		Report:   filepath.Base(report),
		DeckJSON: filepath.Base(deckJSON),
		DeckYAML: filepath.Base(deckYAML),
	}

	if _, err := WriteManifest(dir, m); err != nil {
		return nil, "", err
	}
	return m, dir, nil
}
