package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure category of a fetch. The zero value is KindUnknown.
type Kind int

const (
	// KindUnknown covers failures that declare no category.
	KindUnknown Kind = iota
	// KindClient is malformed input or a local network failure.
	KindClient
	// KindServer is a malfunction of the remote service.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is a fetch failure tagged with its Kind.
type Error struct {
	Kind    Kind
	Fetcher string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.String() + " error"
}

func (e *Error) Unwrap() error { return e.Err }

// ClientError tags a failure caused by the input or the local network.
func ClientError(format string, args ...any) *Error {
	return &Error{Kind: KindClient, Message: fmt.Sprintf(format, args...)}
}

// ServerError tags a failure caused by the remote service.
func ServerError(format string, args ...any) *Error {
	return &Error{Kind: KindServer, Message: fmt.Sprintf(format, args...)}
}

// Classify maps any error to its Kind. Errors that carry no *Error in their
// chain are KindUnknown, as is nil.
func Classify(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// FromStatus builds the error for a non-200 HTTP response: 4xx is the
// client's fault, 5xx the server's, anything else is undeclared.
func FromStatus(fetcher string, status int, body string) *Error {
	msg := fmt.Sprintf("%s: http %d", fetcher, status)
	if body != "" {
		msg += ": " + body
	}
	kind := KindUnknown
	switch {
	case status >= 400 && status < 500:
		kind = KindClient
	case status >= 500 && status < 600:
		kind = KindServer
	}
	return &Error{Kind: kind, Fetcher: fetcher, Message: msg}
}

// FromTransport wraps an error returned by the HTTP client. Transport
// failures (DNS, refused connections, timeouts) are local network problems
// and count as client errors. Cancellation is passed through untouched.
func FromTransport(fetcher string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	return &Error{Kind: KindClient, Fetcher: fetcher, Message: fetcher + ": request failed", Err: err}
}

// FromDecode wraps a response body that could not be decoded. A service that
// answers 200 with garbage is malfunctioning.
func FromDecode(fetcher string, err error) error {
	return &Error{Kind: KindServer, Fetcher: fetcher, Message: fetcher + ": unreadable response", Err: err}
}

// IsNotFound reports whether status means the identifier is unknown to the
// service, which fetchers report as an absent result rather than an error.
func IsNotFound(status int) bool {
	return status == http.StatusNotFound || status == http.StatusGone
}
