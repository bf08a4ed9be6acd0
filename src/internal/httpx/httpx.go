package httpx

import (
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Doer is the minimal HTTP client interface used across packages.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// UserAgent identifies the tool to bibliographic services that ask clients to
// do so (Crossref, OpenLibrary).
const UserAgent = "bibentry/1.0 (+https://github.com/bibentry/bibentry)"

// SetUA sets the UserAgent header on the request.
func SetUA(req *http.Request) {
	if req != nil {
		req.Header.Set("User-Agent", UserAgent)
	}
}

// NewClient returns an http.Client with the given overall timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Limited wraps d so that each request first waits on limiter. The wait
// honours the request context, so cancelling a lookup also abandons a
// request still queued behind the limiter.
func Limited(d Doer, limiter *rate.Limiter) Doer {
	if limiter == nil {
		return d
	}
	return limitedDoer{next: d, limiter: limiter}
}

type limitedDoer struct {
	next    Doer
	limiter *rate.Limiter
}

func (l limitedDoer) Do(req *http.Request) (*http.Response, error) {
	if err := l.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return l.next.Do(req)
}

// Snippet reads at most 4 KiB of the response body for error messages.
func Snippet(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return strings.TrimSpace(string(b))
}
