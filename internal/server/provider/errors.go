package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/dmitrijs2005/aiexplorer/internal/netx"
)

// transientError marks a failure worth another attempt.
type transientError struct {
	err error
}

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var t transientError
	return errors.As(err, &t)
}

var transientHints = []string{
	"rate limit",
	"too many requests",
	"temporarily",
	"unavailable",
	"timeout",
	"timed out",
	"try again",
	"overloaded",
}

func looksTransient(msg string) bool {
	msg = strings.ToLower(msg)
	for _, h := range transientHints {
		if strings.Contains(msg, h) {
			return true
		}
	}
	return false
}

// classify maps a session or transport failure to the upstream taxonomy.
// status is the latest rejected message status in the attempt, or 0 when
// the failure was below HTTP.
func classify(ctx context.Context, status int, err error) error {
	switch {
	case ctx.Err() != nil:
		// the caller's deadline is spent; retry.Do reports it
		return fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, ctx.Err())
	case errors.Is(err, errNoTool):
		return fmt.Errorf("%w: %v", common.ErrUpstreamProtocolError, err)
	case status >= http.StatusBadRequest && !netx.IsTransientStatus(status):
		return fmt.Errorf("%w: http %d: %v", common.ErrUpstreamRejected, status, err)
	default:
		return transientError{fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)}
	}
}
