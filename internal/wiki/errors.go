package wiki

import (
	"errors"
	"fmt"

	"github.com/luifiio/cougar/internal/observability"
)

// ErrNotFound marks a legitimate absence: no such page, no linked entity.
var ErrNotFound = errors.New("wiki: not found")

// Kind classifies a source failure.
type Kind string

const (
	// KindTransport covers timeouts, connection errors and non-success statuses.
	KindTransport Kind = "transport"
	// KindParse covers malformed or unexpected response bodies.
	KindParse Kind = "parse"
)

// SourceError is returned by every Client operation that failed to reach or
// understand an upstream source.
type SourceError struct {
	Op     string
	Kind   Kind
	Status int
	Err    error
}

func (e *SourceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("wiki %s: %s: status %d: %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("wiki %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func transportErr(op string, status int, err error) error {
	return &SourceError{Op: op, Kind: KindTransport, Status: status, Err: err}
}

func parseErr(op string, err error) error {
	return &SourceError{Op: op, Kind: KindParse, Err: err}
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	return KindOf(err) == KindTransport
}

// IsParse reports whether err is a parse failure.
func IsParse(err error) bool {
	return KindOf(err) == KindParse
}

// Degrade records a failed source call that the caller is about to replace
// with an empty result. Absences are not failures and are only logged.
func Degrade(logger *observability.Logger, metrics *observability.Metrics, op string, err error) {
	if err == nil {
		return
	}
	if logger != nil {
		logger.Debug().Str("op", op).Str("kind", string(KindOf(err))).Err(err).Msg("source call degraded")
	}
	if metrics == nil || IsAbsent(err) {
		return
	}
	kind := KindOf(err)
	if kind == "" {
		kind = KindTransport
	}
	metrics.SourceErrors.WithLabelValues(op, string(kind)).Inc()
}

// KindOf returns the kind of a SourceError in err's chain, or "" otherwise.
func KindOf(err error) Kind {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
