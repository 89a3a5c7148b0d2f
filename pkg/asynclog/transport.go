package asynclog

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerTransport is an http.RoundTripper that stops calling the
// ingestion endpoint after repeated transport failures and probes it again
// after a cool-down. It never retries a request.
type BreakerTransport struct {
	base http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

// BreakerSettings tunes NewBreakerTransport
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker. Default: 5
	ConsecutiveFailures uint32
	// CoolDown is how long the breaker stays open. Default: 30s
	CoolDown time.Duration
}

// NewBreakerTransport wraps base (http.DefaultTransport when nil)
func NewBreakerTransport(base http.RoundTripper, name string, s BreakerSettings) *BreakerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.CoolDown <= 0 {
		s.CoolDown = 30 * time.Second
	}

	threshold := s.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.CoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})

	return &BreakerTransport{base: base, cb: cb}
}

// RoundTrip implements http.RoundTripper. 5xx replies count as failures
// but are still returned to the caller.
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	_, err := t.cb.Execute(func() (interface{}, error) {
		r, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		resp = r
		if r.StatusCode >= 500 {
			return nil, fmt.Errorf("ingestion endpoint status %d", r.StatusCode)
		}
		return nil, nil
	})
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

// State reports the breaker state (closed, half-open, open)
func (t *BreakerTransport) State() string {
	return t.cb.State().String()
}
