package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nescampos/ainalyst/internal/export"
)

var (
	slidesQuery  string
	slidesFormat string
	slidesOut    string
)

var slidesCmd = &cobra.Command{
	Use:   "slides <report.md>",
	Short: "Compile an existing markdown report into a slide deck",
	Long: `
Compile a markdown report into a paginated slide deck without running any
research. Each "## " heading becomes a section; lists, tables and text lines
are laid out on content slides.

The deck is printed to stdout unless --out is given.
`,
	Args: cobra.ExactArgs(1),
	RunE: runSlides,
}

func init() {
	slidesCmd.Flags().StringVar(&slidesQuery, "query", "", "deck title (default: the report file name)")
	slidesCmd.Flags().StringVarP(&slidesFormat, "format", "f", "json", "output format: json or yaml")
	slidesCmd.Flags().StringVar(&slidesOut, "out", "", "write the deck to this file")
}

func runSlides(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	query := slidesQuery
	if query == "" {
		base := filepath.Base(args[0])
		query = strings.ReplaceAll(strings.TrimSuffix(base, filepath.Ext(base)), "_", " ")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	deck := a.compiler.Compile(query, string(data))

	doc, err := export.EncodeDeck(deck, slidesFormat)
	if err != nil {
		return err
	}

	if slidesOut == "" {
		_, err = cmd.OutOrStdout().Write(doc)
		return err
	}
	if err := os.WriteFile(slidesOut, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write deck: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d slides to %s\n", len(deck.Slides), slidesOut)
	return nil
}
