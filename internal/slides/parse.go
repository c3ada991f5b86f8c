package slides

import (
	"regexp"
	"strings"
)

// untitled names a section that has no level-2 heading.
const untitled = "Untitled"

// Section is one level-2 block of the report with its parsed body.
type Section struct {
	Title    string
	Elements []Element
}

// Line patterns. headingRe covers "### Sub heading" and deeper, plus any
// stray level-1 line inside a section body.
var (
	titleRe   = regexp.MustCompile(`^#(?:\s.*)?$`)
	sectionRe = regexp.MustCompile(`^##(?:\s+(.*))?$`)
	headingRe = regexp.MustCompile(`^\s{0,3}#{1,6}\s+(.*?)(?:\s+#+)?\s*$`)
	bulletRe  = regexp.MustCompile(`^\s*[*+-]\s+(.*)$`)
	orderedRe = regexp.MustCompile(`^\s*\d+[.)]\s+(.*)$`)
	indentRe  = regexp.MustCompile(`^\s+\S`)
)

// Parse splits a markdown report into sections. A leading level-1 heading is
// dropped, text before the first level-2 heading forms an "Untitled" section,
// and sections with a blank body are discarded.
func Parse(markdown string) []Section {
	lines := strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n")
	lines = stripTitle(lines)

	var sections []Section
	for _, chunk := range splitSections(lines) {
		title, body := untitled, chunk
		if m := sectionRe.FindStringSubmatch(chunk[0]); m != nil {
			if t := strings.TrimSpace(m[1]); t != "" {
				title = t
			}
			body = chunk[1:]
		}
		text := strings.Join(body, "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		sections = append(sections, Section{Title: title, Elements: ParseElements(text)})
	}
	return sections
}

// stripTitle removes the first non-blank line when it is a level-1 heading.
func stripTitle(lines []string) []string {
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if titleRe.MatchString(line) {
			return lines[i+1:]
		}
		return lines
	}
	return lines
}

// splitSections cuts lines at every level-2 heading. Each chunk after the
// first starts with its heading line.
func splitSections(lines []string) [][]string {
	var chunks [][]string
	var current []string
	for _, line := range lines {
		if sectionRe.MatchString(line) && len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// ParseElements turns a section body into elements, top to bottom. Blank
// lines produce nothing.
func ParseElements(body string) []Element {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	var elements []Element

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}

		if bulletRe.MatchString(line) || orderedRe.MatchString(line) {
			list, end := extractList(lines, i)
			elements = append(elements, list)
			i = end
			continue
		}

		if strings.Contains(line, "|") && i+1 < len(lines) && isTableSeparator(lines[i+1]) {
			if table, end, ok := extractTable(lines, i); ok {
				elements = append(elements, table)
				i = end
				continue
			}
		}

		elements = append(elements, textElement(line))
	}
	return elements
}

// textElement builds a text element, dropping the hashes of deeper headings.
func textElement(line string) TextElement {
	content := strings.TrimSpace(line)
	if m := headingRe.FindStringSubmatch(line); m != nil && m[1] != "" {
		content = m[1]
	}
	return TextElement{
		Content:   content,
		Formatted: strings.ContainsAny(content, "*_"),
	}
}

// extractList collects the list run starting at lines[start]. The first line
// fixes whether the list is ordered. It returns the index of the last line
// consumed.
func extractList(lines []string, start int) (ListElement, int) {
	itemRe := bulletRe
	if orderedRe.MatchString(lines[start]) {
		itemRe = orderedRe
	}

	var items []string
	i := start
	for ; i < len(lines); i++ {
		line := lines[i]
		if m := itemRe.FindStringSubmatch(line); m != nil {
			items = append(items, strings.TrimSpace(m[1]))
			continue
		}
		if indentRe.MatchString(line) && len(items) > 0 {
			items[len(items)-1] += "\n" + strings.TrimSpace(line)
			continue
		}
		break
	}
	return ListElement{Items: items}, i - 1
}

// isTableSeparator reports whether line looks like "---|:--:|---".
func isTableSeparator(line string) bool {
	s := strings.TrimSpace(line)
	if !strings.Contains(s, "-") {
		return false
	}
	for _, r := range s {
		switch r {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// extractTable parses the header at lines[start], skips the separator, and
// reads rows until the first line without a pipe. ok is false when the
// header has no cells.
func extractTable(lines []string, start int) (TableElement, int, bool) {
	headers := splitCells(lines[start])
	if len(headers) == 0 {
		return TableElement{}, start, false
	}

	table := TableElement{Headers: headers, Rows: [][]string{}}
	i := start + 2
	for ; i < len(lines) && strings.Contains(lines[i], "|"); i++ {
		if row := splitCells(lines[i]); len(row) > 0 {
			table.Rows = append(table.Rows, row)
		}
	}
	return table, i - 1, true
}

func splitCells(line string) []string {
	var cells []string
	for _, c := range strings.Split(line, "|") {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}
