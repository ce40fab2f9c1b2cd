package quiver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidParameter reports a caller mistake rejected before any work
// (bad chunk sizes, non-positive top_k). Never retried.
type ErrInvalidParameter struct {
	Param  string
	Reason string
}

func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}

// ErrNotFound reports a lookup of an unknown collection.
type ErrNotFound struct {
	Collection string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("collection %q not found", e.Collection)
}

// Dependency stages for ErrDependency.
const (
	StageEmbed    = "embed"
	StageScore    = "score"
	StageGenerate = "generate"
	StageConvert  = "convert"
)

// ErrDependency wraps a failure from an opaque dependency (embedding model,
// cross-encoder, generative LLM, document converter). Timeout marks a
// deadline expiry rather than a rejection or malformed response; callers may
// retry timeouts with bounded backoff.
type ErrDependency struct {
	Stage   string
	Err     error
	Timeout bool
}

func (e *ErrDependency) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: dependency timeout: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ErrDependency) Unwrap() error { return e.Err }

// wrapDependency wraps err as an ErrDependency for the given stage, marking
// it as a timeout when the error chain contains a context deadline expiry.
// Returns nil when err is nil.
func wrapDependency(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &ErrDependency{
		Stage:   stage,
		Err:     err,
		Timeout: errors.Is(err, context.DeadlineExceeded),
	}
}

// ErrHTTP is a transport-level provider error. RetryAfter carries the parsed
// Retry-After header when the server sent one.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseRetryAfter parses a Retry-After header value, which is either an
// integer number of seconds or an HTTP-date. Returns 0 for empty, negative,
// or unparseable values.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// --- Classification helpers ---

// IsNotFound reports whether err is a collection lookup failure.
func IsNotFound(err error) bool {
	var e *ErrNotFound
	return errors.As(err, &e)
}

// IsInvalidParameter reports whether err is a rejected-parameter failure.
func IsInvalidParameter(err error) bool {
	var e *ErrInvalidParameter
	return errors.As(err, &e)
}

// IsDependencyTimeout reports whether err is a dependency call that expired
// its deadline.
func IsDependencyTimeout(err error) bool {
	var e *ErrDependency
	return errors.As(err, &e) && e.Timeout
}
