package slides

import (
	"time"

	"github.com/nescampos/ainalyst/internal/logger"
)

const (
	// Subtitle is printed under the query on the title slide.
	Subtitle = "Research Report"

	dateLayout = "2006-01-02"
)

// Compiler turns report markdown into a Deck.
type Compiler struct {
	now    func() time.Time
	logger logger.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithClock sets the clock used for the title slide date.
func WithClock(now func() time.Time) Option {
	return func(c *Compiler) { c.now = now }
}

// WithLogger sets the compiler's logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// NewCompiler creates a Compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{now: time.Now, logger: logger.NewNoOpLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile builds the deck: one title slide, then for each non-empty section
// a section-title slide and its content slides.
func (c *Compiler) Compile(query, markdown string) Deck {
	deck := Deck{
		Title: query,
		Slides: []Slide{{
			Kind:     SlideTitle,
			Title:    query,
			Subtitle: Subtitle,
			Date:     c.now().Format(dateLayout),
		}},
	}

	sections := Parse(markdown)
	for _, s := range sections {
		deck.Slides = append(deck.Slides, Paginate(s)...)
	}

	c.logger.Debug("deck compiled", map[string]interface{}{
		"sections": len(sections),
		"slides":   len(deck.Slides),
	})
	return deck
}
