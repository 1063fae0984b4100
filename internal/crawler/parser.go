package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ParseResult holds everything the engine needs from one page:
// the declared canonical URL, outbound links, and the title.
//
// Design decision: a single parsing pass collects all three rather than
// separate extraction calls, because the DOM walk dominates the cost.
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Canonical is the absolute URL from <link rel="canonical">,
	// or empty when the page declares none.
	Canonical string

	// Links are all outbound hyperlink targets, resolved to absolute
	// form against the page URL and with fragments stripped.
	Links []string
}

// pageParser extracts links and the canonical URL from HTML content.
//
// Design decision: golang.org/x/net/html rather than regex because it
// handles the malformed HTML common on real sites and gives a proper
// node tree for attribute inspection.
type pageParser struct {
	// baseURL resolves relative hrefs.
	baseURL *url.URL
}

// ParsePage parses HTML content served at pageURL and extracts the
// canonical URL and all outbound links.
func ParsePage(content io.Reader, pageURL string) (*ParseResult, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	p := &pageParser{baseURL: u}
	result := &ParseResult{Links: make([]string, 0)}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles one HTML element node.
func (p *pageParser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		if href := getAttr(n, "href"); href != "" {
			if resolved := p.resolveURL(href); resolved != "" {
				result.Links = append(result.Links, resolved)
			}
		}

	case "link":
		// First declared canonical wins, matching browser behavior.
		if result.Canonical == "" && strings.EqualFold(getAttr(n, "rel"), "canonical") {
			if href := getAttr(n, "href"); href != "" {
				result.Canonical = p.resolveURL(href)
			}
		}
	}
}

// resolveURL resolves an href against the page URL and strips the
// fragment, since fragments never change server-side resource identity.
// Non-navigational schemes yield empty.
func (p *pageParser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") ||
		strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	resolved.Fragment = ""
	return resolved.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
