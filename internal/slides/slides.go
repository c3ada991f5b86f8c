// Package slides compiles a markdown research report into a paginated slide
// deck. Parsing is line oriented and forgiving: anything that does not look
// like a list or a table becomes a text element. Nothing here returns an
// error.
package slides

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ElementKind tags the concrete type behind an Element.
type ElementKind string

const (
	KindText  ElementKind = "text"
	KindList  ElementKind = "list"
	KindTable ElementKind = "table"
)

// Element is one parsed markdown construct placed on a slide.
type Element interface {
	Kind() ElementKind
}

// Compile-time interface checks.
var (
	_ Element = TextElement{}
	_ Element = ListElement{}
	_ Element = TableElement{}
)

// TextElement is a single line of prose. Formatted is set when the line
// carries emphasis markers.
type TextElement struct {
	Content   string
	Formatted bool
}

// ListElement is a run of bullet or numbered items. A continuation line is
// kept inside its item, separated by a newline.
type ListElement struct {
	Items []string
}

// TableElement is a pipe table without its separator line.
type TableElement struct {
	Headers []string
	Rows    [][]string
}

func (TextElement) Kind() ElementKind  { return KindText }
func (ListElement) Kind() ElementKind  { return KindList }
func (TableElement) Kind() ElementKind { return KindTable }

var boldMarkers = regexp.MustCompile(`\*\*|__`)

// emphasis strips paired markers, double before single. Underscores only
// count at word boundaries, so identifiers like LLM_TIMEOUT survive.
var emphasis = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\*\*(.+?)\*\*`), "$1"},
	{regexp.MustCompile(`\*(.+?)\*`), "$1"},
	{regexp.MustCompile(`(^|\W)__(.+?)__(\W|$)`), "$1$2$3"},
	{regexp.MustCompile(`(^|\W)_(.+?)_(\W|$)`), "$1$2$3"},
}

// Bold reports whether the line uses double emphasis markers.
func (e TextElement) Bold() bool {
	return e.Formatted && boldMarkers.MatchString(e.Content)
}

// Italic reports whether the line uses single markers and no double ones.
func (e TextElement) Italic() bool {
	return e.Formatted && !e.Bold() && strings.ContainsAny(e.Content, "*_")
}

// Plain returns the content with paired emphasis markers removed.
func (e TextElement) Plain() string {
	if !e.Formatted {
		return e.Content
	}
	s := e.Content
	for _, m := range emphasis {
		// A boundary character is consumed by one match, so adjacent pairs
		// need another pass.
		for next := m.re.ReplaceAllString(s, m.repl); next != s; next = m.re.ReplaceAllString(s, m.repl) {
			s = next
		}
	}
	return s
}

// SlideKind distinguishes the three slide layouts.
type SlideKind string

const (
	SlideTitle   SlideKind = "title"
	SlideSection SlideKind = "section"
	SlideContent SlideKind = "content"
)

// Slide is one page of the deck.
type Slide struct {
	Kind     SlideKind
	Title    string
	Subtitle string
	Date     string
	Elements []Element
}

// Deck is the compiled presentation.
type Deck struct {
	Title  string  `json:"title" yaml:"title"`
	Slides []Slide `json:"slides" yaml:"slides"`
}

// Count returns the number of slides of the given kind.
func (d Deck) Count(kind SlideKind) int {
	n := 0
	for _, s := range d.Slides {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// elementDoc is the render-ready, serialized form of an Element. Text is
// exported with its markers stripped and the emphasis turned into flags.
type elementDoc struct {
	Type    ElementKind `json:"type" yaml:"type"`
	Content string      `json:"content,omitempty" yaml:"content,omitempty"`
	Bold    bool        `json:"bold,omitempty" yaml:"bold,omitempty"`
	Italic  bool        `json:"italic,omitempty" yaml:"italic,omitempty"`
	Items   []string    `json:"items,omitempty" yaml:"items,omitempty"`
	Headers []string    `json:"headers,omitempty" yaml:"headers,omitempty"`
	Rows    [][]string  `json:"rows,omitempty" yaml:"rows,omitempty"`
}

type slideDoc struct {
	Kind     SlideKind    `json:"kind" yaml:"kind"`
	Title    string       `json:"title" yaml:"title"`
	Subtitle string       `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Date     string       `json:"date,omitempty" yaml:"date,omitempty"`
	Elements []elementDoc `json:"elements,omitempty" yaml:"elements,omitempty"`
}

func docOf(el Element) elementDoc {
	switch e := el.(type) {
	case TextElement:
		return elementDoc{Type: KindText, Content: e.Plain(), Bold: e.Bold(), Italic: e.Italic()}
	case ListElement:
		return elementDoc{Type: KindList, Items: e.Items}
	case TableElement:
		return elementDoc{Type: KindTable, Headers: e.Headers, Rows: e.Rows}
	default:
		return elementDoc{Type: el.Kind()}
	}
}

func (s Slide) doc() slideDoc {
	d := slideDoc{Kind: s.Kind, Title: s.Title, Subtitle: s.Subtitle, Date: s.Date}
	for _, el := range s.Elements {
		d.Elements = append(d.Elements, docOf(el))
	}
	return d
}

// MarshalJSON writes the slide in its render-ready form.
func (s Slide) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.doc())
}

// MarshalYAML implements yaml.Marshaler with the same shape as MarshalJSON.
func (s Slide) MarshalYAML() (interface{}, error) {
	return s.doc(), nil
}
