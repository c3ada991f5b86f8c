package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nescampos/ainalyst/internal/export"
	"github.com/nescampos/ainalyst/internal/logger"
	"github.com/nescampos/ainalyst/internal/metrics"
	"github.com/nescampos/ainalyst/internal/orchestrator"
)

var (
	researchNoSave      bool
	researchQuiet       bool
	researchPrintReport bool
	researchMetricsAddr string
)

var researchCmd = &cobra.Command{
	Use:   "research <query>",
	Short: "Research a question and write a report and slide deck",
	Long: `
Run the full research pipeline for a query: plan sub-questions, search and
answer each one, write a markdown report, and compile it into slides.

The report, the deck (JSON and YAML) and a manifest are written to
<output-dir>/<query-slug>_<run-id>/. Stages that fall back because a provider
is unavailable are listed at the end instead of failing the run.

Examples:
  ainalyst research "state of solid-state batteries"
  ainalyst research --metrics-addr :9090 what is retrieval augmented generation
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().BoolVar(&researchNoSave, "no-save", false, "do not write outputs to disk")
	researchCmd.Flags().BoolVarP(&researchQuiet, "quiet", "q", false, "hide progress output")
	researchCmd.Flags().BoolVar(&researchPrintReport, "print", false, "print the markdown report to stdout")
	researchCmd.Flags().StringVar(&researchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
}

func runResearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []orchestrator.Option
	if !researchQuiet {
		opts = append(opts, orchestrator.WithObserver(newProgressPrinter(out).observe))
	}

	a, err := newResearchApp(ctx, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := researchMetricsAddr
	if addr == "" {
		addr = a.cfg.MetricsAddr
	}
	if addr != "" {
		stopMetrics := serveMetrics(addr, a.log)
		defer stopMetrics()
	}

	res, err := a.pipeline.Run(ctx, query)
	if err != nil {
		return err
	}

	if !researchNoSave {
		m, dir, err := export.WriteRun(a.cfg.OutputDir, res)
		if err != nil {
			return fmt.Errorf("failed to save outputs: %w", err)
		}
		fmt.Fprintf(out, "\nSaved to %s\n", dir)
		fmt.Fprintf(out, "  report: %s\n", filepath.Join(dir, m.Files.Report))
		fmt.Fprintf(out, "  slides: %s\n", filepath.Join(dir, m.Files.DeckJSON))
	}

	printSummary(out, res)
	if researchPrintReport {
		fmt.Fprintf(out, "\n%s\n", res.Report)
	}
	return nil
}

// printSummary writes the run totals, then any degradations and coherence
// warnings.
func printSummary(w io.Writer, res *orchestrator.Result) {
	fmt.Fprintf(w, "\n%d sub-questions, %d slides, capability %s, %s\n",
		len(res.SubQuestions), len(res.Deck.Slides), res.Capability,
		res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))

	if res.Degraded() {
		fmt.Fprintf(w, "\nDegraded stages (%d):\n", len(res.Degradations))
		for _, d := range res.Degradations {
			if d.Subject != "" {
				fmt.Fprintf(w, "  ! %s [%s]: %s\n", d.Stage, d.Subject, d.Note)
				continue
			}
			fmt.Fprintf(w, "  ! %s: %s\n", d.Stage, d.Note)
		}
	}
	if len(res.Issues) > 0 {
		fmt.Fprintf(w, "\nCoherence warnings (%d):\n", len(res.Issues))
		for _, issue := range res.Issues {
			fmt.Fprintf(w, "  - %s\n", issue.Description)
		}
	}
}

// progressPrinter renders progress events with a header at each new stage.
// Observers may be called from several goroutines.
type progressPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	stage   orchestrator.Stage
	started bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (pp *progressPrinter) observe(ev orchestrator.ProgressEvent) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if ev.Milestone() && (!pp.started || ev.Stage != pp.stage) {
		fmt.Fprintln(pp.w, orchestrator.FormatStageHeader(ev.RunID, ev.Stage))
		pp.stage, pp.started = ev.Stage, true
	}
	fmt.Fprintln(pp.w, orchestrator.FormatProgress(ev))
}

// serveMetrics exposes /metrics on addr and returns a function that shuts
// the server down.
func serveMetrics(addr string, log logger.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", map[string]interface{}{
				"addr":  addr,
				"error": err.Error(),
			})
		}
	}()
	log.Info("serving metrics", map[string]interface{}{"addr": addr})

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
