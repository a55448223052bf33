package tools

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/everydev1618/vegascript/value"
)

// fetch implements http.fetch. The result is an object with url, title,
// length, content and, when the content was cut, next (the start_index of
// the following page).
func (b *builtins) fetch(ctx context.Context, c *Call) (Outcome, error) {
	params, err := c.Native()
	if err != nil {
		return Outcome{}, err
	}
	urlStr, _ := params["url"].(string)
	if urlStr == "" {
		return Outcome{}, fmt.Errorf("url is required")
	}

	maxLength := 5000
	if v, ok := toInt(params["max_length"]); ok && v > 0 {
		maxLength = v
	}
	startIndex := 0
	if v, ok := toInt(params["start_index"]); ok && v >= 0 {
		startIndex = v
	}
	raw, _ := params["raw"].(bool)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "vegascript/1.0 (http.fetch)")
	req.Header.Set("Accept", "text/html, application/json, text/plain, */*")

	resp, err := b.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Outcome{}, fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, urlStr)
	}

	// Read body with 5MB limit.
	const maxBody = 5 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Outcome{}, fmt.Errorf("read body: %w", err)
	}

	content := string(body)
	title := ""
	if !raw {
		title = extractTitle(content)
		content = stripHTML(content)
	}

	runes := []rune(content)
	total := len(runes)
	if startIndex > total {
		startIndex = total
	}
	end := min(startIndex+maxLength, total)

	result := value.ObjectOf(
		"url", urlStr,
		"status", float64(resp.StatusCode),
		"length", float64(total),
		"content", string(runes[startIndex:end]),
	)
	if title != "" {
		result.Set("title", title)
	}
	if end < total {
		result.Set("next", float64(end))
	}
	return Done(result), nil
}

// Tags whose entire content (including children) should be removed.
var (
	stripScriptRe = regexp.MustCompile(`(?is)<script[\s>].*?</script>`)
	stripStyleRe  = regexp.MustCompile(`(?is)<style[\s>].*?</style>`)
	stripNavRe    = regexp.MustCompile(`(?is)<nav[\s>].*?</nav>`)
	stripHeaderRe = regexp.MustCompile(`(?is)<header[\s>].*?</header>`)
	stripFooterRe = regexp.MustCompile(`(?is)<footer[\s>].*?</footer>`)
	titleRe       = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

// Any remaining HTML tag.
var stripTagRe = regexp.MustCompile(`<[^>]+>`)

// Consecutive whitespace (but not newlines).
var collapseSpaceRe = regexp.MustCompile(`[^\S\n]+`)

// Three or more consecutive newlines.
var collapseNewlineRe = regexp.MustCompile(`\n{3,}`)

// extractTitle pulls the <title> text from HTML.
func extractTitle(s string) string {
	m := titleRe.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(stripTagRe.ReplaceAllString(m[1], "")))
}

// stripHTML removes HTML tags and cleans up whitespace.
func stripHTML(s string) string {
	s = stripScriptRe.ReplaceAllString(s, "")
	s = stripStyleRe.ReplaceAllString(s, "")
	s = stripNavRe.ReplaceAllString(s, "")
	s = stripHeaderRe.ReplaceAllString(s, "")
	s = stripFooterRe.ReplaceAllString(s, "")

	s = stripTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)

	s = collapseSpaceRe.ReplaceAllString(s, " ")
	s = collapseNewlineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// toInt converts various numeric types to int.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}
