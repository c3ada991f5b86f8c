package retriever

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nescampos/ainalyst/internal/logger"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// MaxContentChars bounds extracted page text.
	MaxContentChars = 2000

	scrapeTimeout = 5 * time.Second
	maxPageBytes  = 4 << 20
	browserUA     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Scraper fetches a page and extracts its main readable text.
type Scraper struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	maxChars  int
	logger    logger.Logger
}

// NewScraper creates a Scraper with a 5 second fetch timeout and a browser
// User-Agent.
func NewScraper(log logger.Logger) *Scraper {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Scraper{
		client:    &http.Client{},
		timeout:   scrapeTimeout,
		userAgent: browserUA,
		maxChars:  MaxContentChars,
		logger:    log,
	}
}

// Scrape returns the collapsed, truncated main text of rawURL, or "" when
// the input is not an http(s) URL or anything fails.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || !strings.HasPrefix(rawURL, "http") {
		return ""
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("scrape request failed", map[string]interface{}{"url": rawURL, "error": err.Error()})
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Debug("scrape non-2xx", map[string]interface{}{"url": rawURL, "status": resp.StatusCode})
		return ""
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return ""
	}
	return truncateRunes(ExtractMainText(doc), s.maxChars)
}

// ExtractMainText removes boilerplate regions and returns the whitespace
// collapsed text of the first main-content container, falling back to the
// body (or the whole document).
func ExtractMainText(doc *html.Node) string {
	removeBoilerplate(doc)

	if n := findFirst(doc, isContentContainer); n != nil {
		if text := collapseWhitespace(collectText(n)); text != "" {
			return text
		}
	}
	if body := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Body }); body != nil {
		return collapseWhitespace(collectText(body))
	}
	return collapseWhitespace(collectText(doc))
}

// removeBoilerplate detaches script, style, noscript, nav, footer and header
// subtrees.
func removeBoilerplate(n *html.Node) {
	var doomed []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Footer, atom.Header:
				doomed = append(doomed, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	for _, d := range doomed {
		if d.Parent != nil {
			d.Parent.RemoveChild(d)
		}
	}
}

// isContentContainer matches main, article, .content, #content, .post and
// .article.
func isContentContainer(n *html.Node) bool {
	if n.DataAtom == atom.Main || n.DataAtom == atom.Article {
		return true
	}
	for _, a := range n.Attr {
		switch a.Key {
		case "id":
			if a.Val == "content" {
				return true
			}
		case "class":
			for _, cls := range strings.Fields(a.Val) {
				if cls == "content" || cls == "post" || cls == "article" {
					return true
				}
			}
		}
	}
	return false
}

// findFirst returns the first element node in document order matching pred.
func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// blockAtoms get a separating space so adjacent blocks do not fuse words.
var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Br: true, atom.Tr: true,
	atom.Td: true, atom.Th: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Section: true,
	atom.Blockquote: true, atom.Pre: true,
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		}
		block := n.Type == html.ElementNode && blockAtoms[n.DataAtom]
		if block {
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteByte(' ')
		}
	}
	walk(n)
	return sb.String()
}
