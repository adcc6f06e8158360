package helpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"slices"
	"strings"
	"time"

	"sjsage522/examwatcher/pkg/errors"

	"golang.org/x/net/html/charset"
)

// HTTP header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}

	referers = []string{
		"https://www.google.com/",
		"https://ieltsadd.ir/",
	}
)

// NewHTTPClient returns a client that gives up on a request after timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// FetchWithRandomHeaders sends an HTTP GET request with browser-like headers
// and returns the body converted to UTF-8.
//
// A 429/430 answer yields a rate_limit error, any other non-200 status or
// transport failure yields a network error.
func FetchWithRandomHeaders(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewNetwork(url, "failed to create request", err)
	}

	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "fa-IR,fa;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("referer", referers[rnd.Intn(len(referers))])

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.NewNetwork(url, "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		return nil, errors.New(errors.ErrorTypeRateLimit, url,
			fmt.Sprintf("rate limited; retry after %s", resp.Header.Get("Retry-After")), nil)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewNetwork(url, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetwork(url, "failed to read response body", err)
	}

	return toUTF8(bodyBytes, resp.Header.Get("Content-Type"))
}

// toUTF8 converts body to UTF-8 based on the Content-Type header and the body itself
func toUTF8(body []byte, contentType string) ([]byte, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if strings.EqualFold(name, "utf-8") {
		return body, nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, encoding.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}
	return buf.Bytes(), nil
}
