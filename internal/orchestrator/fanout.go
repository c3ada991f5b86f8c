package orchestrator

import (
	"context"
	"fmt"

	"github.com/nescampos/ainalyst/internal/agent"
	"golang.org/x/sync/errgroup"
)

// FanOut researches sub-questions through a Synthesizer, at most limit at a
// time, and returns the outcomes in question order.
type FanOut struct {
	synth      Synthesizer
	limit      int
	onProgress func(ProgressEvent)
}

// NewFanOut creates a FanOut. A limit below 1 researches one question at a
// time. onProgress may be called from several goroutines; it may be nil.
func NewFanOut(synth Synthesizer, limit int, onProgress func(ProgressEvent)) *FanOut {
	if limit < 1 {
		limit = 1
	}
	return &FanOut{
		synth:      synth,
		limit:      limit,
		onProgress: onProgress,
	}
}

// Run answers every question. A working event is emitted for each question
// in order, when it is admitted. Failures stay with their own question: a
// degraded answer or a recovered panic never affects the others.
func (f *FanOut) Run(ctx context.Context, questions []string) []agent.Outcome[agent.SubAnswer] {
	results := make([]agent.Outcome[agent.SubAnswer], len(questions))
	slots := make(chan struct{}, f.limit)
	var g errgroup.Group

	for i, q := range questions {
		slots <- struct{}{}
		ev := ProgressEvent{
			Stage:   StageResearching,
			Section: q,
			Status:  ProgressWorking,
			Index:   i + 1,
			Total:   len(questions),
		}
		f.emit(ev)

		g.Go(func() error {
			defer func() { <-slots }()
			results[i] = f.answer(ctx, ev)
			return nil
		})
	}

	_ = g.Wait() // answer never returns an error
	return results
}

func (f *FanOut) answer(ctx context.Context, ev ProgressEvent) (out agent.Outcome[agent.SubAnswer]) {
	defer func() {
		if r := recover(); r != nil {
			note := fmt.Sprintf("panic while researching: %v", r)
			out = agent.Degrade(agent.SubAnswer{
				Question: ev.Section,
				Answer:   "Error researching this sub-question: " + note,
				Sources:  []agent.Source{},
			}, note)
			ev.Status = ProgressFailed
			ev.Message = note
			f.emit(ev)
		}
	}()

	out = f.synth.Answer(ctx, ev.Section)
	ev.Status = ProgressComplete
	if out.Degraded {
		ev.Status = ProgressDegraded
		ev.Message = out.Note
	}
	f.emit(ev)
	return out
}

// emit sends a progress event if a callback is registered.
func (f *FanOut) emit(ev ProgressEvent) {
	if f.onProgress != nil {
		f.onProgress(ev)
	}
}
