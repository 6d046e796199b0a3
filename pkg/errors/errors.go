package errors

import (
	stderrors "errors"
	"fmt"
)

// Category groups error kinds by the boundary they cross
type Category string

const (
	CategoryAuth   Category = "auth"
	CategoryFetch  Category = "fetch"
	CategoryConfig Category = "config"
)

// Kind identifies a specific failure within a category
type Kind string

const (
	// Auth kinds
	KindBadCredentials     Kind = "bad_credentials"
	KindTwoFactorTimeout   Kind = "two_factor_timeout"
	KindTwoFactorCancelled Kind = "two_factor_cancelled"
	KindSessionNotFound    Kind = "session_not_found"

	// Fetch kinds
	KindNotFound              Kind = "not_found"
	KindPrivateOrUnauthorized Kind = "private_or_unauthorized"
	KindRateLimited           Kind = "rate_limited"
	KindConnection            Kind = "connection"
	KindUnknown               Kind = "unknown"

	// Config kinds
	KindMissingTarget    Kind = "missing_target"
	KindInvalidDateRange Kind = "invalid_date_range"
	KindInvalidURL       Kind = "invalid_url"

	// KindMissingCredentials covers an auth mode without its inputs
	KindMissingCredentials Kind = "missing_credentials"
)

var categories = map[Kind]Category{
	KindBadCredentials:        CategoryAuth,
	KindTwoFactorTimeout:      CategoryAuth,
	KindTwoFactorCancelled:    CategoryAuth,
	KindSessionNotFound:       CategoryAuth,
	KindNotFound:              CategoryFetch,
	KindPrivateOrUnauthorized: CategoryFetch,
	KindRateLimited:           CategoryFetch,
	KindConnection:            CategoryFetch,
	KindUnknown:               CategoryFetch,
	KindMissingTarget:         CategoryConfig,
	KindMissingCredentials:    CategoryConfig,
	KindInvalidDateRange:      CategoryConfig,
	KindInvalidURL:            CategoryConfig,
}

// Error is a classified failure. Code carries the HTTP status when one was involved.
type Error struct {
	Category Category
	Kind     Kind
	Message  string
	Code     int
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error (%s): %s", e.Category, e.Kind, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (%s, code %d): %s", e.Category, e.Kind, e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, errors.New(KindRateLimited, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a classified error of the given kind
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Category: categoryFor(kind),
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Wrap classifies an underlying error
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	e := New(kind, format, args...)
	e.Err = err
	return e
}

// WithCode attaches an HTTP status code
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

func categoryFor(kind Kind) Category {
	if c, ok := categories[kind]; ok {
		return c
	}
	return CategoryFetch
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CategoryOf returns the category of err, or the empty category when unclassified.
func CategoryOf(err error) Category {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category
	}
	return ""
}

// HasKind reports whether any error in err's tree, including every branch
// of a joined error, is classified as kind.
func HasKind(err error, kind Kind) bool {
	return err != nil && stderrors.Is(err, &Error{Kind: kind})
}

// IsRetryable checks if an error kind should be retried
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindConnection, KindRateLimited:
		return true
	default:
		return false
	}
}

// FromStatusCode maps an HTTP status to a fetch error kind
func FromStatusCode(statusCode int) Kind {
	switch {
	case statusCode == 0:
		return KindConnection
	case statusCode == 429:
		return KindRateLimited
	case statusCode == 401 || statusCode == 403:
		return KindPrivateOrUnauthorized
	case statusCode == 404:
		return KindNotFound
	case statusCode >= 500:
		return KindConnection
	default:
		return KindUnknown
	}
}

// StatusOf returns the HTTP status attached to err, or 0.
func StatusOf(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return 0
}
