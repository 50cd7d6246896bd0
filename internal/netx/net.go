// Package netx holds HTTP plumbing for outbound calls to provider servers.
package netx

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// StatusRecorder remembers the HTTP status of the latest failed message
// exchange during one logical call, which may span several HTTP requests.
// Only POST requests carry messages; the optional GET event stream and the
// DELETE that ends a session are ignored.
type StatusRecorder struct {
	mu     sync.Mutex
	status int
}

func (r *StatusRecorder) record(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = code
}

// Status returns the status of the latest rejected POST, or 0 when nothing
// was rejected or the latest failure happened below HTTP.
func (r *StatusRecorder) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

type recorderKey struct{}

// WithStatusRecorder attaches a fresh recorder to ctx. Requests issued with
// the returned context report their response status to it.
func WithStatusRecorder(ctx context.Context) (context.Context, *StatusRecorder) {
	rec := &StatusRecorder{}
	return context.WithValue(ctx, recorderKey{}, rec), rec
}

func recorderFrom(ctx context.Context) *StatusRecorder {
	rec, _ := ctx.Value(recorderKey{}).(*StatusRecorder)
	return rec
}

type recordingTransport struct {
	base http.RoundTripper
}

func (t recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)

	rec := recorderFrom(req.Context())
	if rec == nil || req.Method != http.MethodPost {
		return resp, err
	}

	switch {
	case err != nil:
		rec.record(0)
	case resp.StatusCode >= http.StatusBadRequest:
		rec.record(resp.StatusCode)
	}
	return resp, err
}

// NewHTTPClient returns a client whose transport feeds StatusRecorders.
// timeout caps every single HTTP exchange; zero leaves it to the context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: recordingTransport{base: http.DefaultTransport},
	}
}

// IsTransientStatus reports whether a provider status should be retried.
func IsTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
