package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client fetches files through a repository contents API
// (<api-root>/<owner>/<repo>/contents/<path>).
type Client struct {
	// APIRoot is the API base, e.g. "https://api.github.com/repos".
	APIRoot string
	// User and Token enable basic auth, which lifts the anonymous rate limit.
	User  string
	Token string
	// Timeout bounds each request. Zero means no per-request timeout.
	Timeout time.Duration
	// HTTP is the underlying client. nil uses http.DefaultClient.
	HTTP *http.Client
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// ContentsURL returns the API address of file p in repo. Whitespace is
// stripped so the URL can double as a cache identity.
func (c *Client) ContentsURL(repo Repo, p string) string {
	root := strings.TrimRight(c.APIRoot, "/")
	u := root + "/" + repo.Owner + "/" + repo.Name + "/contents/" + CleanPath(p)
	return strings.Join(strings.Fields(u), "")
}

// contentsResponse is the subset of the contents API payload we use.
type contentsResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// Fetch downloads url and returns the decoded file text.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.User != "" || c.Token != "" {
		req.SetBasicAuth(c.User, c.Token)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", &HTTPError{URL: url, Status: resp.StatusCode}
	}

	var payload contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding %s: %w", url, err)
	}
	if payload.Type != "" && payload.Type != "file" {
		return "", fmt.Errorf("%s is a %s, not a file", url, payload.Type)
	}
	return decodeContent(payload.Encoding, payload.Content)
}

// decodeContent turns the transport encoding back into text. The API
// wraps base64 output every 60 characters, so line breaks are dropped
// before decoding.
func decodeContent(encoding, content string) (string, error) {
	switch strings.ToLower(encoding) {
	case "base64":
		raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(content), ""))
		if err != nil {
			return "", fmt.Errorf("decoding base64 content: %w", err)
		}
		return string(raw), nil
	case "", "utf-8", "utf8":
		return content, nil
	default:
		return "", fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
