// Package export writes the artifacts of a research run to disk: the
// markdown report, the slide deck as JSON and YAML, and a manifest that
// describes the run. Each run gets its own directory under the output root.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nescampos/ainalyst/internal/slides"
)

const (
	maxSlugLen  = 50
	defaultSlug = "research"
	shortIDLen  = 8

	// DeckSuffix is appended to the slug of deck files.
	DeckSuffix = "slides"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// ErrUnknownFormat is returned by EncodeDeck for formats other than json
// and yaml.
var ErrUnknownFormat = errors.New("export: unknown deck format")

// Slug turns a query into a file-system safe name: lowercase, every run of
// other characters replaced by "_", at most 50 bytes.
func Slug(query string) string {
	s := nonAlnumRe.ReplaceAllString(strings.ToLower(query), "_")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	if strings.Trim(s, "_") == "" {
		return defaultSlug
	}
	return s
}

// Filename returns "<slug>_<suffix>.<ext>", or "<slug>.<ext>" without a
// suffix.
func Filename(query, suffix, ext string) string {
	name := Slug(query)
	if suffix != "" {
		name += "_" + suffix
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}

// RunDir is the directory holding one run's files.
func RunDir(outputDir, query, runID string) string {
	id := runID
	if len(id) > shortIDLen {
		id = id[:shortIDLen]
	}
	name := Slug(query)
	if id != "" {
		name += "_" + id
	}
	return filepath.Join(outputDir, name)
}

// WriteReport writes the markdown report into dir and returns its path.
func WriteReport(dir, query, report string) (string, error) {
	path := filepath.Join(dir, Filename(query, "", "md"))
	if err := writeFile(path, []byte(report)); err != nil {
		return "", fmt.Errorf("export: report: %w", err)
	}
	return path, nil
}

// EncodeDeck renders the deck as "json" (indented) or "yaml". An empty
// format means json.
func EncodeDeck(deck slides.Deck, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		data, err := json.MarshalIndent(deck, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("export: marshal deck: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		data, err := yaml.Marshal(deck)
		if err != nil {
			return nil, fmt.Errorf("export: marshal deck: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteDeckJSON writes the deck as indented JSON and returns its path.
func WriteDeckJSON(dir, query string, deck slides.Deck) (string, error) {
	return writeDeck(dir, query, deck, "json")
}

// WriteDeckYAML writes the deck as YAML and returns its path.
func WriteDeckYAML(dir, query string, deck slides.Deck) (string, error) {
	return writeDeck(dir, query, deck, "yaml")
}

func writeDeck(dir, query string, deck slides.Deck, format string) (string, error) {
	data, err := EncodeDeck(deck, format)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, Filename(query, DeckSuffix, format))
	if err := writeFile(path, data); err != nil {
		return "", fmt.Errorf("export: deck %s: %w", format, err)
	}
	return path, nil
}

// writeFile writes data to path, creating directories as needed.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
