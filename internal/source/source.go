package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dexwatch/dexwatch/internal/model"
)

// Source provides pool records for a symbol from one upstream provider.
type Source interface {
	// Name identifies the provider (lands in PoolRecord.Source).
	Name() string

	// FetchPools returns all pools the provider knows for the symbol.
	// An empty slice is a valid "no data" result, not an error.
	FetchPools(ctx context.Context, symbol string) ([]model.PoolRecord, error)
}

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindNetwork   ErrorKind = "network"
	KindParse     ErrorKind = "parse"
	KindRateLimit ErrorKind = "rate_limit"
	KindNotFound  ErrorKind = "not_found"
)

// Error is the only fallible boundary of the collection core. Every kind
// is recoverable at the collector level.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// NetworkError wraps a transport-level failure.
func NetworkError(err error) *Error {
	return &Error{Kind: KindNetwork, Msg: err.Error()}
}

// ParseError wraps a malformed-response failure.
func ParseError(err error) *Error {
	return &Error{Kind: KindParse, Msg: err.Error()}
}

// RateLimitError signals provider throttling.
func RateLimitError() *Error {
	return &Error{Kind: KindRateLimit}
}

// NotFoundError signals the provider has no listing for the symbol.
func NotFoundError(symbol string) *Error {
	return &Error{Kind: KindNotFound, Msg: symbol}
}

// KindOf returns the error's kind, or "" if err is not a source error.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// newHTTPClient builds the shared client used by providers.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
