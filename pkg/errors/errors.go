package errors

import (
	"errors"
	"fmt"
)

// Kind classifies scraper failures. The first four kinds are terminal: they
// abort a scrape and surface to the caller. The remaining three are
// enrichment-local: the orchestrator logs them and degrades the affected
// stage instead of failing the scrape.
type Kind string

const (
	KindInvalidURL    Kind = "invalid_url"
	KindRequest       Kind = "request"
	KindParsing       Kind = "parsing"
	KindMediaDownload Kind = "media_download"
	KindCommentFetch  Kind = "comment_fetch"
	KindViewFetch     Kind = "view_fetch"
	KindProfileFetch  Kind = "profile_fetch"
)

// Error is a typed scraper error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind wrapping a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or an empty Kind for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsTerminal reports whether an error kind aborts the whole scrape.
func IsTerminal(kind Kind) bool {
	switch kind {
	case KindInvalidURL, KindRequest, KindParsing, KindMediaDownload:
		return true
	default:
		return false
	}
}

// IsEnrichment reports whether an error kind is absorbed at the orchestrator
// boundary and downgraded to a skipped stage.
func IsEnrichment(kind Kind) bool {
	switch kind {
	case KindCommentFetch, KindViewFetch, KindProfileFetch:
		return true
	default:
		return false
	}
}
