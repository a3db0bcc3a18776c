package instagram

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"reelscraper/pkg/config"
	"reelscraper/pkg/logger"
)

// rewriteTransport redirects every request to the test server regardless of
// the host baked into the endpoint constants.
type rewriteTransport struct {
	base *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.base.Scheme
	req.URL.Host = t.base.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()

	base, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("failed to parse test server URL: %v", err)
	}

	client := NewClient(5*time.Second, NewAnonymousSession(), "test-agent", testLogger(t))
	client.httpClient = &http.Client{Transport: rewriteTransport{base: base}}
	return client
}

func testLogger(t *testing.T) logger.Logger {
	t.Helper()

	log, err := logger.New(&config.LoggingConfig{Level: "disabled"})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return log
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}
