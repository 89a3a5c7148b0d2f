package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is a fully buffered upstream response
type Result struct {
	Status  int
	Header  http.Header
	Body    []byte
	Latency time.Duration
}

// Upstream forwards calls verbatim to a single provider base URL
type Upstream struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// hop-by-hop headers are connection-scoped and never forwarded
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// NewUpstream creates a forwarder for baseURL (e.g. https://api.openai.com)
func NewUpstream(baseURL string, timeout time.Duration) (*Upstream, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q: scheme and host are required", baseURL)
	}

	return &Upstream{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
			// redirects are the caller's business
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// TargetURL maps an inbound request URL onto the upstream host
func (u *Upstream) TargetURL(in *url.URL) string {
	target := *u.baseURL
	target.Path = singleJoiningSlash(u.baseURL.Path, in.Path)
	target.RawPath = ""
	target.RawQuery = in.RawQuery
	return target.String()
}

// Forward sends the call upstream and buffers the whole response body.
// Non-2xx responses are returned as results, not errors.
func (u *Upstream) Forward(ctx context.Context, method string, in *url.URL, header http.Header, body []byte) (*Result, error) {
	start := time.Now()

	var reader io.Reader
	if method != http.MethodGet && method != http.MethodHead {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.TargetURL(in), reader)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	req.Header = header.Clone()
	removeHopHeaders(req.Header)
	// let the transport negotiate compression so the captured body is decoded
	req.Header.Del("Accept-Encoding")
	req.Header.Del("Content-Length")
	req.Host = u.baseURL.Host

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	header = resp.Header.Clone()
	removeHopHeaders(header)
	header.Del("Content-Length")

	return &Result{
		Status:  resp.StatusCode,
		Header:  header,
		Body:    respBody,
		Latency: time.Since(start),
	}, nil
}

func removeHopHeaders(h http.Header) {
	for _, f := range h.Values("Connection") {
		for _, name := range strings.Split(f, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}
