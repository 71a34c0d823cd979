package wiki

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/luifiio/cougar/internal/specs"
)

// Summary is the REST page summary of a Wikipedia article.
type Summary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
}

// PageURL returns the canonical desktop URL.
func (s *Summary) PageURL() string {
	return s.ContentURLs.Desktop.Page
}

// ThumbnailURL returns the thumbnail source URL, or "".
func (s *Summary) ThumbnailURL() string {
	if s.Thumbnail == nil {
		return ""
	}
	return s.Thumbnail.Source
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// SearchTitles runs a full-text search and returns up to limit titles in rank order.
func (c *Client) SearchTitles(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 1
	}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")
	params.Set("srlimit", strconv.Itoa(limit))

	var resp searchResponse
	if err := c.getJSON(ctx, "search", c.cfg.WikipediaAPI, params, &resp); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		if hit.Title != "" {
			titles = append(titles, hit.Title)
		}
	}
	return titles, nil
}

// FetchSummary returns the REST summary for title.
func (c *Client) FetchSummary(ctx context.Context, title string) (*Summary, error) {
	var s Summary
	endpoint := strings.TrimRight(c.cfg.WikipediaREST, "/") + "/page/summary/" + titlePath(title)
	if err := c.getJSON(ctx, "summary", endpoint, nil, &s); err != nil {
		return nil, err
	}
	if s.Title == "" && s.Extract == "" {
		return nil, parseErr("summary", fmt.Errorf("empty summary for %q", title))
	}
	return &s, nil
}

// FetchInfoboxSpecs downloads the article HTML and maps infobox rows onto
// canonical spec names. Pages without an infobox yield an empty bundle.
func (c *Client) FetchInfoboxSpecs(ctx context.Context, title string) (*specs.Bundle, error) {
	endpoint := strings.TrimRight(c.cfg.WikipediaPage, "/") + "/" + titlePath(title)
	body, err := c.get(ctx, "page", endpoint, nil)
	if err != nil {
		return nil, err
	}
	b, err := ParseInfobox(body)
	if err != nil {
		return nil, parseErr("page", err)
	}
	return b, nil
}

// ParseInfobox extracts raw spec text from the first infobox table in page.
// Rows need both a header and a data cell; a later row whose label maps to
// the same spec name replaces an earlier one.
func ParseInfobox(page []byte) (*specs.Bundle, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	b := specs.NewBundle()
	box := findFirst(doc, isInfobox)
	if box == nil {
		return b, nil
	}

	var rows []*html.Node
	collect(box, func(n *html.Node) bool { return isElement(n, "tr") }, &rows)
	for _, row := range rows {
		th := findFirst(row, func(n *html.Node) bool { return isElement(n, "th") })
		td := findFirst(row, func(n *html.Node) bool { return isElement(n, "td") })
		if th == nil || td == nil {
			continue
		}
		name, ok := specs.CanonicalLabel(nodeText(th))
		if !ok {
			continue
		}
		b.SetText(name, nodeText(td))
	}
	return b, nil
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func isInfobox(n *html.Node) bool {
	return isElement(n, "table") && hasClass(n, "infobox")
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

// findFirst returns the first descendant of n, in document order, matching pred.
func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if pred(c) {
			return c
		}
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func collect(n *html.Node, pred func(*html.Node) bool, out *[]*html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if pred(c) {
			*out = append(*out, c)
		}
		collect(c, pred, out)
	}
}

// nodeText joins the trimmed text fragments under n with single spaces,
// skipping stylesheets, scripts and citation markers. No-break spaces inside
// a fragment are kept as written; the unit parsers accept them as gaps.
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "style", n.Data == "script":
				return
			case n.Data == "sup" && hasClass(n, "reference"):
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
