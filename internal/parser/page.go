// Package parser provides tolerant HTML parsing for page audits.
// It extracts the structural facts the findings evaluator needs: title,
// meta description, heading counts, forms, images, and anchor hrefs.
package parser

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// PageParser extracts a structural summary from HTML
type PageParser struct {
	baseURL *url.URL
}

// PageSummary contains the parsed structural facts of a page
type PageSummary struct {
	Title           string
	MetaDescription string
	Headings        map[string]int // h1..h6 counts
	FormCount       int
	Images          []Image
	AnchorURLs      []string // Absolute hrefs, deduplicated, insertion order
}

// Image describes an <img> tag and whether it carries alt text
type Image struct {
	Source string
	HasAlt bool
}

// NewPageParser creates a parser that resolves hrefs against baseURL,
// which should be the final URL of the fetched page.
func NewPageParser(baseURL string) (*PageParser, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &PageParser{baseURL: parsedURL}, nil
}

// Parse walks the HTML document and builds a structural summary.
// html.Parse never fails on malformed markup short of a read error, so
// unclosed or unknown tags degrade to best-effort extraction rather
// than aborting the audit. Scripts and styles are never evaluated.
func (p *PageParser) Parse(htmlContent []byte) (*PageSummary, error) {
	doc, err := html.Parse(strings.NewReader(string(htmlContent)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	summary := &PageSummary{
		Headings:   map[string]int{"h1": 0, "h2": 0, "h3": 0, "h4": 0, "h5": 0, "h6": 0},
		Images:     []Image{},
		AnchorURLs: []string{},
	}

	seen := make(map[string]bool)
	p.traverse(doc, summary, seen)

	return summary, nil
}

// traverse recursively walks the HTML tree
func (p *PageParser) traverse(n *html.Node, summary *PageSummary, seen map[string]bool) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if summary.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				summary.Title = strings.TrimSpace(n.FirstChild.Data)
			}

		case "meta":
			p.parseMeta(n, summary)

		case "h1", "h2", "h3", "h4", "h5", "h6":
			summary.Headings[n.Data]++

		case "form":
			summary.FormCount++

		case "img":
			p.parseImage(n, summary)

		case "a":
			p.parseAnchor(n, summary, seen)
		}
	}

	// Traverse children
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.traverse(c, summary, seen)
	}
}

// parseMeta extracts the description from meta tags
func (p *PageParser) parseMeta(n *html.Node, summary *PageSummary) {
	var name, content string

	for _, attr := range n.Attr {
		switch attr.Key {
		case "name":
			name = strings.ToLower(attr.Val)
		case "content":
			content = attr.Val
		}
	}

	if name == "description" && summary.MetaDescription == "" {
		summary.MetaDescription = strings.TrimSpace(content)
	}
}

// parseImage records an image descriptor with alt-text presence.
// An alt attribute that is present but blank counts as missing.
func (p *PageParser) parseImage(n *html.Node, summary *PageSummary) {
	var src, alt string

	for _, attr := range n.Attr {
		switch attr.Key {
		case "src":
			src = attr.Val
		case "alt":
			alt = attr.Val
		}
	}

	summary.Images = append(summary.Images, Image{
		Source: src,
		HasAlt: strings.TrimSpace(alt) != "",
	})
}

// parseAnchor collects absolute, deduplicated anchor hrefs
func (p *PageParser) parseAnchor(n *html.Node, summary *PageSummary, seen map[string]bool) {
	var href string

	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = strings.TrimSpace(attr.Val)
		}
	}

	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return
	}

	absURL, err := p.resolveURL(href)
	if err != nil {
		return
	}

	// Only http(s) targets are probe-able
	parsedURL, err := url.Parse(absURL)
	if err != nil {
		return
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return
	}

	if seen[absURL] {
		return
	}
	seen[absURL] = true

	summary.AnchorURLs = append(summary.AnchorURLs, absURL)
}

// resolveURL converts relative URLs to absolute URLs
func (p *PageParser) resolveURL(href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", err
	}

	resolved := p.baseURL.ResolveReference(u)
	return resolved.String(), nil
}
