package network

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yapweijun1996/AI-Code-Editor-v13/logging"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
	"github.com/yapweijun1996/AI-Code-Editor-v13/network/contracts"
	"golang.org/x/net/html"
)

const maxSearchResults = 8

// SearchResult is one organic result of the HTML search page.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// DuckDuckGo queries the HTML endpoint and parses its result list.
type DuckDuckGo struct {
	client    *http.Client
	endpoint  string
	userAgent string
	logger    *logrus.Entry
}

func NewDuckDuckGo(endpoint string, timeout time.Duration, userAgent string) contracts.ISearcher {
	return &DuckDuckGo{
		client:    &http.Client{Timeout: timeout},
		endpoint:  endpoint,
		userAgent: userAgent,
		logger:    logging.NewLogger("search"),
	}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string) (models.ServiceResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.ServiceResponse{}, fmt.Errorf("search query is required")
	}
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return models.ServiceResponse{}, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return models.ServiceResponse{}, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return models.ServiceResponse{Status: StatusError, Message: fmt.Sprintf("search returned HTTP %d", resp.StatusCode)}, nil
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return models.ServiceResponse{}, fmt.Errorf("parse search results: %w", err)
	}
	results := ParseResults(doc)
	d.logger.WithField("results", len(results)).Debugf("Searched %q", query)
	if len(results) == 0 {
		return models.ServiceResponse{Status: StatusSuccess, Output: fmt.Sprintf("No results found for %q", query)}, nil
	}
	return models.ServiceResponse{Status: StatusSuccess, Output: FormatResults(results)}, nil
}

// ParseResults collects result__a links and their result__snippet siblings.
func ParseResults(doc *html.Node) []SearchResult {
	var results []SearchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxSearchResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			switch {
			case hasClass(n, "result__a"):
				results = append(results, SearchResult{Title: textOf(n), URL: resolveRedirect(attr(n, "href"))})
				return
			case hasClass(n, "result__snippet") && len(results) > 0:
				results[len(results)-1].Snippet = textOf(n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results
}

// FormatResults renders results as a numbered list.
func FormatResults(results []SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// resolveRedirect unwraps the /l/?uddg= redirect the HTML endpoint uses.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
