package autocomplete

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Endpoint contract shared with the HTTP handler serving suggestions.
const (
	Path       = "/ingredient-autocomplete"
	QueryParam = "q"
)

const (
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

// ErrLookupFailed is returned when the suggestion endpoint cannot be used
var ErrLookupFailed = errors.New("suggestion lookup failed")

// Client queries the suggestion endpoint over HTTP. It never retries: every
// keystroke is an independent request.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient creates a client for the server at baseURL. A timeout of zero
// uses a 5 second default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(baseURL, "/") + Path,
	}
}

// URL returns the request URL for query
func (c *Client) URL(query string) string {
	params := url.Values{}
	params.Set(QueryParam, query)
	return c.endpoint + "?" + params.Encode()
}

// Suggest fetches the suggestion list for query. The body must be a JSON
// array of strings.
func (c *Client) Suggest(ctx context.Context, query string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(query), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "RecipeBox/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrLookupFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var list []string
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrLookupFailed, err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}
