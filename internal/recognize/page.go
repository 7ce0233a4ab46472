package recognize

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// PageAdapter pulls the article body out of a fetched web page
type PageAdapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter understands the page layout
	CanHandle(rawURL string, contentType string) bool

	// Content returns the node holding the article body, or nil
	Content(doc *html.Node) *html.Node
}

// PageRegistry picks the adapter for a page
type PageRegistry struct {
	adapters []PageAdapter
	generic  PageAdapter
}

// NewPageRegistry creates a registry with the built-in adapters
func NewPageRegistry() *PageRegistry {
	registry := &PageRegistry{}

	registry.Register(wechatAdapter{})
	registry.Register(wikipediaAdapter{})

	registry.generic = genericAdapter{}
	return registry
}

// Register registers a new adapter; later registrations are tried last
func (r *PageRegistry) Register(adapter PageAdapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the best adapter for the given URL and content type
func (r *PageRegistry) FindAdapter(rawURL string, contentType string) PageAdapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(rawURL, contentType) {
			return adapter
		}
	}
	return r.generic
}

// PageText extracts the readable text of a page. The adapter name is returned
// for logging. Pages whose adapter finds no body fall back to the whole document.
func (r *PageRegistry) PageText(body, rawURL, contentType string) (string, string, error) {
	if ct := strings.ToLower(contentType); ct != "" && !strings.Contains(ct, "html") {
		return Normalize(body), "plain", nil
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("parse page: %w", err)
	}

	adapter := r.FindAdapter(rawURL, contentType)
	content := adapter.Content(doc)
	if content == nil {
		content = doc
	}

	var buf strings.Builder
	writeVisible(&buf, content)
	return Normalize(buf.String()), adapter.Name(), nil
}

// wechatAdapter handles official-account articles, the usual carrier of forwarded rumours
type wechatAdapter struct{}

func (wechatAdapter) Name() string { return "wechat" }

func (wechatAdapter) CanHandle(rawURL string, _ string) bool {
	return hostMatches(rawURL, "mp.weixin.qq.com")
}

func (wechatAdapter) Content(doc *html.Node) *html.Node {
	return findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "div") && (attr(n, "id") == "js_content" || hasClass(n, "rich_media_content"))
	})
}

// wikipediaAdapter keeps the parser output and drops citation markers
type wikipediaAdapter struct{}

func (wikipediaAdapter) Name() string { return "wikipedia" }

func (wikipediaAdapter) CanHandle(rawURL string, _ string) bool {
	return hostMatches(rawURL, "wikipedia.org")
}

func (wikipediaAdapter) Content(doc *html.Node) *html.Node {
	content := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "div") && (hasClass(n, "mw-parser-output") || attr(n, "id") == "mw-content-text")
	})
	if content == nil {
		return nil
	}

	for _, ref := range findAll(content, func(n *html.Node) bool {
		return isElement(n, "sup") && hasClass(n, "reference") ||
			isElement(n, "div") && (hasClass(n, "reflist") || hasClass(n, "navbox")) ||
			isElement(n, "table") && hasClass(n, "infobox")
	}) {
		if ref.Parent != nil {
			ref.Parent.RemoveChild(ref)
		}
	}
	return content
}

// genericAdapter prefers <article>, then <main>, then <body>
type genericAdapter struct{}

func (genericAdapter) Name() string { return "generic" }

func (genericAdapter) CanHandle(string, string) bool { return true }

func (genericAdapter) Content(doc *html.Node) *html.Node {
	for _, tag := range []string{"article", "main", "body"} {
		if n := findFirst(doc, func(n *html.Node) bool { return isElement(n, tag) }); n != nil {
			return n
		}
	}
	return nil
}

// writeVisible writes text nodes below n, skipping page chrome
func writeVisible(buf *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "iframe", "head", "nav", "header", "footer", "aside", "form":
			return
		}
	}

	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeVisible(buf, c)
	}

	if n.Type == html.ElementNode && isBlock(n.Data) {
		buf.WriteString("\n")
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "tr", "section", "article", "blockquote",
		"h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func hostMatches(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func hasClass(n *html.Node, className string) bool {
	for _, class := range strings.Fields(attr(n, "class")) {
		if class == className {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	if predicate(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, predicate); found != nil {
			return found
		}
	}
	return nil
}
