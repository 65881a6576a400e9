package document

import (
	"strings"

	"golang.org/x/net/html"
)

// blockElements end a line in the extracted text
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true, "li": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true,
}

// ExtractVisibleText returns the text a reader would see, one block per line.
// Elements styled page-break-before start a new page, separated by a form feed.
func ExtractVisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var line strings.Builder

	flush := func() {
		text := strings.Join(strings.Fields(line.String()), " ")
		if text != "" {
			buf.WriteString(text)
			buf.WriteString("\n")
		}
		line.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head", "template":
				return
			}
			if breaksPage(n) {
				flush()
				buf.WriteString(pageSeparator)
			}
		}

		if n.Type == html.TextNode {
			line.WriteString(n.Data)
			line.WriteString(" ")
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] {
			flush()
		}
	}

	walk(doc)
	flush()
	return strings.TrimSpace(buf.String()), nil
}

// breaksPage reports whether n carries a page-break style, as EDGAR filings do
func breaksPage(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key != "style" {
			continue
		}
		style := strings.ToLower(strings.ReplaceAll(attr.Val, " ", ""))
		if strings.Contains(style, "page-break-before:always") || strings.Contains(style, "break-before:page") {
			return true
		}
	}
	return false
}
