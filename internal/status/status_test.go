package status

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nescampos/ainalyst/internal/export"
	"github.com/nescampos/ainalyst/internal/orchestrator"
	"github.com/nescampos/ainalyst/internal/slides"
)

func saveRun(t *testing.T, out, query, runID string, started time.Time, degraded bool) string {
	t.Helper()
	res := &orchestrator.Result{
		RunID:      runID,
		Query:      query,
		Capability: orchestrator.CapFull,
		Report:     "# " + query + "\n\n## Summary\n\nDone.\n",
		Deck: slides.Deck{Title: query, Slides: []slides.Slide{
			{Kind: slides.SlideTitle, Title: query},
			{Kind: slides.SlideSection, Title: "Summary"},
		}},
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
	if degraded {
		res.Degradations = []orchestrator.Degradation{{Stage: "planning", Note: "identity plan"}}
	}
	_, dir, err := export.WriteRun(out, res)
	require.NoError(t, err)
	return dir
}

func TestListRuns_MissingDir(t *testing.T) {
	runs, err := ListRuns(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NotNil(t, runs)
}

func TestListRuns_NewestFirst(t *testing.T) {
	out := t.TempDir()
	base := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	saveRun(t, out, "Older topic", "aaaaaaaa-1111", base, false)
	saveRun(t, out, "Newer topic", "bbbbbbbb-2222", base.Add(time.Hour), true)

	// Stray files at the root are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(out, "notes.txt"), []byte("x"), 0o644))

	runs, err := ListRuns(out)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "Newer topic", runs[0].Query)
	assert.Equal(t, "newer_topic_bbbbbbbb", runs[0].ID)
	assert.Equal(t, "bbbbbbbb-2222", runs[0].RunID)
	assert.Equal(t, "full", runs[0].Capability)
	assert.Equal(t, 2, runs[0].Slides)
	assert.Equal(t, 1, runs[0].Degradations)
	assert.True(t, runs[0].HasManifest)
	assert.Equal(t, filepath.Join(out, runs[0].ID, "newer_topic.md"), runs[0].ReportPath)
	assert.Equal(t, filepath.Join(out, runs[0].ID, "newer_topic_slides.json"), runs[0].DeckPath)

	assert.Equal(t, "Older topic", runs[1].Query)
	assert.Equal(t, 0, runs[1].Degradations)
}

func TestListRuns_LegacyFolder(t *testing.T) {
	out := t.TempDir()
	dir := filepath.Join(out, "quantum_computing")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quantum_computing.md"), []byte("# Q\n"), 0o644))

	runs, err := ListRuns(out)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, "quantum computing", runs[0].Name)
	assert.False(t, runs[0].HasManifest)
	assert.Empty(t, runs[0].RunID)
	assert.Equal(t, filepath.Join(dir, "quantum_computing.md"), runs[0].ReportPath)
}

func TestLoadRun(t *testing.T) {
	out := t.TempDir()
	dir := saveRun(t, out, "Edge AI", "cccccccc-3333", time.Now(), false)

	detail, err := LoadRun(out, filepath.Base(dir))
	require.NoError(t, err)
	assert.Equal(t, "Edge AI", detail.Query)
	assert.Contains(t, detail.Report, "## Summary")
}

func TestLoadRun_Errors(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(out, "empty_run"), 0o755))

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"missing", "no_such_run", ErrRunNotFound},
		{"empty id", "", ErrRunNotFound},
		{"traversal", "../etc", ErrRunNotFound},
		{"parent", "..", ErrRunNotFound},
		{"no report", "empty_run", ErrReportMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRun(out, tt.id)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadRun_ManifestCannotEscapeRunDir(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "outputs")
	dir := saveRun(t, out, "Edge AI", "dddddddd-4444", time.Now(), false)
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.md"), []byte("top secret"), 0o644))

	m, err := export.ReadManifest(dir)
	require.NoError(t, err)
	m.Files.Report = "../../secret.md"
	m.Files.DeckJSON = "../deck.json"
	_, err = export.WriteManifest(dir, m)
	require.NoError(t, err)

	runs, err := ListRuns(out)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Empty(t, runs[0].ReportPath)
	assert.Empty(t, runs[0].DeckPath)

	_, err = LoadRun(out, filepath.Base(dir))
	assert.ErrorIs(t, err, ErrReportMissing)
}

func TestInRunDir(t *testing.T) {
	dir := filepath.Join("outputs", "run")
	assert.Equal(t, filepath.Join(dir, "report.md"), inRunDir(dir, "report.md"))
	assert.Empty(t, inRunDir(dir, ""))
	assert.Empty(t, inRunDir(dir, ".."))
	assert.Empty(t, inRunDir(dir, "../x.md"))
	assert.Empty(t, inRunDir(dir, "sub/x.md"))
}
