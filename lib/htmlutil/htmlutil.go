package htmlutil

import (
	"bytes"

	"oppfinder-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// Text returns the selection's text with whitespace collapsed.
func Text(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, node := range sel.Nodes {
		getTextRecursive(node, &buffer)
		buffer.WriteString(" ")
	}
	return textutil.CollapseSpace(buffer.String())
}

// StripChrome removes script/style and page furniture elements so the
// remaining text is just the document's content.
func StripChrome(sel *goquery.Selection) {
	sel.Find("script, style, nav, header, footer").Remove()
}
