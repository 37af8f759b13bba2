// Package bodylimit enforces a maximum request body size (C5), ahead
// of Content-Length when present and via a counting reader otherwise.
package bodylimit

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/logger"
)

// errBodyTooLarge is the internal flow-control sentinel raised when a
// chunked body exceeds the configured limit partway through delivery.
var errBodyTooLarge = errors.New("bodylimit: body size limit exceeded")

// Options configures the middleware.
type Options struct {
	// MaxBytes is the maximum allowed request body size.
	MaxBytes int64
	// DrainTimeout bounds the best-effort drain performed after a
	// rejection so the client sees a proper response instead of a
	// connection reset.
	DrainTimeout time.Duration
	// CloseConnectionOnReject adds "Connection: close" to rejected
	// responses.
	CloseConnectionOnReject bool
}

// Middleware returns an http.Handler wrapping next that enforces opts
// on every request.
func Middleware(opts Options) func(http.Handler) http.Handler {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 1_000_000
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = time.Second
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cl := r.Header.Get("Content-Length"); cl != "" {
				n, err := strconv.ParseInt(cl, 10, 64)
				if err != nil {
					reject(w, r, opts, "Invalid Content-Length", http.StatusBadRequest)
					return
				}
				if n > opts.MaxBytes {
					reject(w, r, opts, "Content-Length too large", http.StatusRequestEntityTooLarge)
					return
				}
			}

			cr := &countingReader{r: r.Body, limit: opts.MaxBytes}
			r.Body = cr

			rw := &responseStartTracker{ResponseWriter: w, body: cr}
			next.ServeHTTP(rw, r)

			// The handler returned having read a body that crossed the
			// limit mid-stream. If it hadn't written anything before the
			// limit was crossed, we can still turn this into a proper
			// 413; if it already
			// started a response, the error surfaced downstream and
			// there is nothing safe left to do here.
			if errors.Is(cr.err, errBodyTooLarge) {
				if rw.started {
					logger.Warnw("body size limit exceeded after response started", "path", r.URL.Path)
					return
				}
				reject(w, r, opts, "Body size limit exceeded", http.StatusRequestEntityTooLarge)
			}
		})
	}
}

// countingReader wraps the request body, tracking cumulative bytes
// delivered to the downstream handler and surfacing errBodyTooLarge
// once the limit is crossed — the Go analogue of the original's
// receive-wrapping flow-control signal, expressed as an io.Reader
// error instead of an exception.
type countingReader struct {
	r     io.ReadCloser
	limit int64
	read  int64
	err   error
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.read > c.limit {
		c.err = errBodyTooLarge
		return n, errBodyTooLarge
	}
	return n, err
}

func (c *countingReader) Close() error { return c.r.Close() }

// responseStartTracker records whether the handler started its
// response. Writes a handler attempts after the body crossed the limit
// (having ignored the read error) are discarded, so the middleware can
// still answer 413.
type responseStartTracker struct {
	http.ResponseWriter
	body    *countingReader
	started bool
}

func (t *responseStartTracker) WriteHeader(status int) {
	if !t.started && t.body.err != nil {
		return
	}
	t.started = true
	t.ResponseWriter.WriteHeader(status)
}

func (t *responseStartTracker) Write(b []byte) (int, error) {
	if !t.started && t.body.err != nil {
		return len(b), nil
	}
	t.started = true
	return t.ResponseWriter.Write(b)
}

func reject(w http.ResponseWriter, r *http.Request, opts Options, detail string, status int) {
	drain(r, opts.DrainTimeout)
	if opts.CloseConnectionOnReject {
		w.Header().Set("Connection", "close")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"detail":"` + detail + `"}`))
}

// drain best-effort reads and discards whatever remains of the request
// body within timeout, so the client observes a complete HTTP response
// rather than a reset connection.
func drain(r *http.Request, timeout time.Duration) {
	if r.Body == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, r.Body)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
