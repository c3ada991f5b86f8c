package slides

// Layout constants, in inches on a 7.5 inch tall slide.
const (
	cursorStart = 0.5
	heightLimit = 6.0
	textHeight  = 0.8
	itemHeight  = 0.6
	listGap     = 0.2
	rowHeight   = 0.5
	tableGap    = 0.3
)

// Height estimates the vertical space el takes on a content slide. A table
// counts its header plus one row of padding.
func Height(el Element) float64 {
	switch e := el.(type) {
	case ListElement:
		return itemHeight*float64(len(e.Items)) + listGap
	case TableElement:
		return rowHeight*float64(len(e.Rows)+2) + tableGap
	default:
		return textHeight
	}
}

// Paginate lays out one section: a section-title slide followed by content
// slides filled greedily, first fit. A list or table is placed as a whole
// unit; when it is taller than the remaining space it moves to a fresh slide,
// and when it is taller than a whole slide it overflows that slide. Every
// section gets at least one content slide.
func Paginate(section Section) []Slide {
	out := []Slide{{Kind: SlideSection, Title: section.Title}}

	current := Slide{Kind: SlideContent, Title: section.Title}
	cursor := cursorStart
	for _, el := range section.Elements {
		h := Height(el)
		if cursor+h > heightLimit && len(current.Elements) > 0 {
			out = append(out, current)
			current = Slide{Kind: SlideContent, Title: section.Title}
			cursor = cursorStart
		}
		current.Elements = append(current.Elements, el)
		cursor += h
	}
	return append(out, current)
}
