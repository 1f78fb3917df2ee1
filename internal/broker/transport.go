package broker

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// maxErrorBody caps how much of an error response is kept as the message.
const maxErrorBody = 4 << 10

// errorBodyTransport rewrites error responses whose body is not JSON (gateway
// HTML pages, plain-text 404s) into the provider's {"message": ...} shape, so
// the SDK reports every rejected call as *alpaca.APIError with the original
// text and status code.
type errorBodyTransport struct {
	base http.RoundTripper
}

func (t errorBodyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode < http.StatusMultipleChoices {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if json.Valid(body) {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp, nil
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	rewritten, err := json.Marshal(map[string]string{"message": msg})
	if err != nil {
		return nil, err
	}

	resp.Body = io.NopCloser(bytes.NewReader(rewritten))
	resp.ContentLength = int64(len(rewritten))
	resp.Header = resp.Header.Clone()
	resp.Header.Set("Content-Type", "application/json")
	resp.Header.Set("Content-Length", strconv.Itoa(len(rewritten)))
	return resp, nil
}

// wrapClient returns a copy of c whose transport normalizes error bodies.
func wrapClient(c *http.Client) *http.Client {
	wrapped := *c
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped.Transport = errorBodyTransport{base: base}
	return &wrapped
}
