package instagram

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"reelscraper/pkg/logger"
)

// Client performs JSON requests against the target service. A single client
// is shared by all fetchers; each request gets the spoofed header set and a
// fresh clone of the session cookies.
type Client struct {
	httpClient *http.Client
	session    *Session
	userAgent  string
	logger     logger.Logger
}

// NewClient creates a client with the given transport timeout and session.
func NewClient(timeout time.Duration, session *Session, userAgent string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if session == nil {
		session = NewAnonymousSession()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		session:    session,
		userAgent:  userAgent,
		logger:     log,
	}
}

// UserAgent returns the spoofed user agent configured on the client.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Authenticated reports whether the client carries session cookies.
func (c *Client) Authenticated() bool {
	return c.session.Authenticated()
}

// GetJSON performs a GET request with the spoofed header set and decodes the
// response body into target. It returns the HTTP status code alongside any
// error; on a non-2xx status the body is not decoded, target is left
// untouched, and no error is returned so callers can apply their own policy.
func (c *Client) GetJSON(url, referer string, target interface{}) (int, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	for key, value := range apiHeaders(c.userAgent, referer) {
		req.Header.Set(key, value)
	}
	c.session.Apply(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"bytes":    len(body),
		"duration": time.Since(start),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.DebugWithFields("error response payload", map[string]interface{}{
			"status":       resp.StatusCode,
			"body_preview": bodyPreview(body),
		})
		return resp.StatusCode, nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		c.logger.DebugWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview(body),
		})
		return resp.StatusCode, err
	}

	return resp.StatusCode, nil
}

func bodyPreview(body []byte) string {
	if len(body) > 200 {
		return string(body[:200]) + "..."
	}
	return string(body)
}
