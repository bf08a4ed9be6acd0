package newcmd

import (
	"fmt"
	"io"
	"strings"

	"bibentry/src/internal/fetcher"
	"bibentry/src/internal/schema"
)

const (
	msgNotRetrieved  = "Bibliographic data could not be retrieved."
	msgClientCause   = "This is likely due to an issue with your input or network connection.\nCheck your network connection and provided identifier, and try again."
	msgServerCause   = "This is likely due to an issue being experienced by the server.\nTry again later."
	msgUnknownCause  = "The following error was encountered:"
	msgInvalidResult = "Searching for the provided identifier succeeded, but an invalid result was returned.\nThis entry may need to be added manually."
)

// printer renders session notifications as plain text. Failures go to errOut.
type printer struct {
	out    io.Writer
	errOut io.Writer
	// failed is set by any failure or empty-result notice.
	failed bool
}

func (p *printer) TaskStarted(identifier, fetcherName string) {
	fmt.Fprintf(p.out, "Looking up %s with %s...\n", identifier, fetcherName)
}

func (p *printer) TaskSucceeded(e *schema.Entry) {
	if e == nil {
		p.failed = true
		fmt.Fprintf(p.errOut, "Invalid result returned\n%s\n", msgInvalidResult)
		return
	}
	fmt.Fprintf(p.out, "Found %s: %s\n", e.Type, describe(*e))
}

func (p *printer) TaskFailed(kind fetcher.Kind, message string) {
	p.failed = true
	fmt.Fprintf(p.errOut, "Failed to lookup identifier\n%s\n", FailureText(kind, message))
}

// FailureText is the explanation shown for a failed lookup of the given kind.
func FailureText(kind fetcher.Kind, message string) string {
	switch kind {
	case fetcher.KindClient:
		return msgNotRetrieved + "\n" + msgClientCause + "\n" + message
	case fetcher.KindServer:
		return msgNotRetrieved + "\n" + msgServerCause + "\n" + message
	default:
		return msgNotRetrieved + "\n" + msgUnknownCause + "\n" + message
	}
}

// describe is a one-line summary: authors (year). Title.
func describe(e schema.Entry) string {
	var b strings.Builder
	if len(e.APA7.Authors) > 0 {
		b.WriteString(e.APA7.Authors[0].Family)
		if len(e.APA7.Authors) > 1 {
			b.WriteString(" et al.")
		}
		b.WriteString(" ")
	}
	if e.APA7.Year != nil {
		fmt.Fprintf(&b, "(%d). ", *e.APA7.Year)
	}
	if t := strings.TrimSpace(e.APA7.Title); t != "" {
		b.WriteString(t)
	} else {
		b.WriteString("(untitled)")
	}
	return strings.TrimSpace(b.String())
}
