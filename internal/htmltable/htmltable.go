// Package htmltable extracts loosely structured tabular data and rendered
// text from HTML documents. Source sites change their markup without notice,
// so extraction works on the first table found and plain cell text rather
// than a fixed schema.
package htmltable

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// Table holds the cell texts of one HTML table, row by row in document order.
type Table struct {
	Rows [][]string
}

// Parse reads an HTML document and returns its first table. Rows without
// any th/td cells come back empty; callers decide whether to skip them.
func Parse(r io.Reader) (*Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "htmltable: parse document")
	}

	tbl := findFirst(doc, "table")
	if tbl == nil {
		return nil, eris.New("htmltable: no table found")
	}

	t := &Table{}
	walk(tbl, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "tr" {
			t.Rows = append(t.Rows, cellTexts(n))
			return false
		}
		return true
	})
	return t, nil
}

// Text returns the rendered text of the whole document, with script and
// style contents dropped. Used for endpoints that wrap a JSON payload in
// HTML markup instead of returning a clean content type.
func Text(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", eris.Wrap(err, "htmltable: parse document")
	}

	var b strings.Builder
	walk(doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return false
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return strings.TrimSpace(b.String()), nil
}

// cellTexts collects the trimmed text of every th/td cell in a row.
func cellTexts(tr *html.Node) []string {
	var cells []string
	walk(tr, func(n *html.Node) bool {
		if n.Type == html.ElementNode && (n.Data == "th" || n.Data == "td") {
			cells = append(cells, nodeText(n))
			return false
		}
		return true
	})
	return cells
}

// nodeText concatenates all text under n, collapsing runs of whitespace.
func nodeText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// findFirst returns the first element with the given tag in document order.
func findFirst(n *html.Node, tag string) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if c.Type == html.ElementNode && c.Data == tag {
			found = c
			return false
		}
		return true
	})
	return found
}

// walk visits n and its descendants depth-first. If fn returns false the
// node's children are not visited.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
