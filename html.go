package indielogin

import (
	"strings"

	"github.com/tomnomnom/linkheader"
	"golang.org/x/net/html"
)

// findLinks collects every rel on <link> and <a> elements in the document.
func findLinks(node *html.Node) linkheader.Links {
	var links linkheader.Links

	for _, link := range searchAll(node, hasRel) {
		href, ok := getAttr(link, "href")
		if !ok {
			continue
		}

		for _, rel := range strings.Fields(attr(link, "rel")) {
			links = append(links, linkheader.Link{
				Rel: strings.ToLower(rel),
				URL: href,
			})
		}
	}

	return links
}

func searchAll(node *html.Node, pred func(*html.Node) bool) (results []*html.Node) {
	if pred(node) {
		results = append(results, node)
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		results = append(results, searchAll(child, pred)...)
	}

	return
}

func hasRel(node *html.Node) bool {
	if node.Type != html.ElementNode || (node.Data != "link" && node.Data != "a") {
		return false
	}

	_, ok := getAttr(node, "rel")
	return ok
}

func getAttr(node *html.Node, attrName string) (string, bool) {
	for _, a := range node.Attr {
		if a.Key == attrName {
			return a.Val, true
		}
	}

	return "", false
}

func attr(node *html.Node, attrName string) string {
	v, _ := getAttr(node, attrName)
	return v
}
