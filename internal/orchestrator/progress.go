package orchestrator

import "fmt"

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
		// Drop the event if the channel is full.
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// label is the event subject, prefixed with "[i/n]" for sub-questions.
func (ev ProgressEvent) label() string {
	if ev.Index > 0 {
		return fmt.Sprintf("[%d/%d] %s", ev.Index, ev.Total, ev.Section)
	}
	return ev.Section
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressWorking:
		return fmt.Sprintf("  \u25cf %s...", event.label())
	case ProgressComplete:
		if event.Message != "" {
			return fmt.Sprintf("  \u2713 %s complete (%s)", event.label(), event.Message)
		}
		return fmt.Sprintf("  \u2713 %s complete", event.label())
	case ProgressDegraded:
		return fmt.Sprintf("  ! %s degraded: %s", event.label(), event.Message)
	case ProgressFailed:
		return fmt.Sprintf("  \u2717 %s failed: %s", event.label(), event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.label())
	}
}

// FormatStageHeader formats a stage header for display.
// Returns: "[{runID}] Stage {N}/6: {stage.String()}"
func FormatStageHeader(runID string, stage Stage) string {
	return fmt.Sprintf("[%s] Stage %d/%d: %s", shortID(runID), int(stage)+1, int(StageCompiling)+1, stage.String())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
