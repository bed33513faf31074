package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"github.com/yapweijun1996/AI-Code-Editor-v13/logging"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
	"github.com/yapweijun1996/AI-Code-Editor-v13/network/contracts"
	"golang.org/x/net/html"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	maxPageBytes = 2 << 20
	maxPageChars = 20000
)

var (
	scriptBlocks = regexp.MustCompile(`(?is)<(script|style|noscript|svg)[^>]*>.*?</(script|style|noscript|svg)>`)
	blockTags    = regexp.MustCompile(`(?i)<(br|/p|/div|/li|/h[1-6]|/tr|/section|/article)[^>]*>`)
	blankLines   = regexp.MustCompile(`\n\s*\n+`)
	spaces       = regexp.MustCompile(`[ \t]+`)
)

// URLReader downloads pages and strips them to text.
type URLReader struct {
	client    *http.Client
	userAgent string
	policy    *bluemonday.Policy
	logger    *logrus.Entry
}

// NewURLReader builds a reader with the given timeout and user agent.
func NewURLReader(timeout time.Duration, userAgent string) contracts.IURLReader {
	return &URLReader{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		policy:    bluemonday.StrictPolicy(),
		logger:    logging.NewLogger("url-reader"),
	}
}

func (r *URLReader) ReadURL(ctx context.Context, rawURL string) (models.ServiceResponse, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.ServiceResponse{}, fmt.Errorf("invalid url %q: only http and https are supported", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.ServiceResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	resp, err := r.client.Do(req)
	if err != nil {
		return models.ServiceResponse{}, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return models.ServiceResponse{}, fmt.Errorf("read %s: %w", u, err)
	}
	r.logger.WithField("status", resp.StatusCode).Debugf("Fetched %s", u)

	if resp.StatusCode >= 400 {
		return models.ServiceResponse{Status: StatusError, Message: fmt.Sprintf("HTTP %d fetching %s", resp.StatusCode, u)}, nil
	}

	text := string(body)
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "html") || looksLikeHTML(text) {
		text = r.htmlToText(text)
	}
	if len([]rune(text)) > maxPageChars {
		text = string([]rune(text)[:maxPageChars]) + "\n\n... (content truncated)"
	}
	return models.ServiceResponse{Status: StatusSuccess, Output: text}, nil
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(s)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

func (r *URLReader) htmlToText(page string) string {
	page = scriptBlocks.ReplaceAllString(page, "")
	page = blockTags.ReplaceAllString(page, "\n")
	text := r.policy.Sanitize(page)
	text = html.UnescapeString(text)
	text = spaces.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
