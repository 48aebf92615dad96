package browser

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

const contextTextLen = 500

// Snapshot is the page state captured before each interpretation.
type Snapshot struct {
	URL        string
	Title      string
	Source     string
	Text       string // visible text extracted from Source
	Screenshot string // path of the last screenshot, empty when disabled
}

// Context renders the page summary sent to the interpreter.
func (s Snapshot) Context() string {
	text := s.Text
	if r := []rune(text); len(r) > contextTextLen {
		text = string(r[:contextTextLen])
	}
	return fmt.Sprintf("Current Page: %s\nURL: %s\nVisible Text: %s", s.Title, s.URL, text)
}

// ExtractText returns the human-visible text of an HTML document with
// whitespace collapsed.
func ExtractText(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}

	doc, err := htmlquery.Parse(strings.NewReader(source))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	for _, n := range htmlquery.Find(doc, "//script | //style | //noscript | //template") {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}

	root := htmlquery.FindOne(doc, "//body")
	if root == nil {
		root = doc
	}

	return collapse(visibleText(root)), nil
}

func visibleText(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			if htmlquery.ExistsAttr(n, "hidden") || htmlquery.SelectAttr(n, "aria-hidden") == "true" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
