package cardparse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"magicscraper/internal/textutil"
)

// renderRulesText flattens the rules box to text. Symbol images are inlined
// as %alt% and each block element starts a new line. The document is not modified.
func renderRulesText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, node := range sel.Nodes {
		renderNode(&b, node)
	}
	return textutil.NFC(textutil.CleanLines(b.String()))
}

func renderNode(b *strings.Builder, node *html.Node) {
	switch node.Type {
	case html.TextNode:
		b.WriteString(node.Data)
		return
	case html.ElementNode:
		switch node.DataAtom {
		case atom.Img:
			b.WriteString("%" + attr(node, "alt") + "%")
			return
		case atom.Br:
			b.WriteByte('\n')
			return
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		renderNode(b, child)
	}
	if node.Type == html.ElementNode && (node.DataAtom == atom.Div || node.DataAtom == atom.P) {
		b.WriteByte('\n')
	}
}

func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
