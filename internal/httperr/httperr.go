// Package httperr gives handlers a way to return a typed error that
// carries both an HTTP status code and, where applicable, an OAuth
// canonical error code, instead of writing the response body directly.
// ErrorHandler adapts such a handler to the standard http.HandlerFunc
// signature.
package httperr

import (
	"encoding/json"
	"net/http"

	"github.com/zohoanalytics/mcp-oauth-proxy/internal/logger"
)

// Error is an error with an HTTP status code and an optional OAuth
// error code/description pair to render as the JSON body.
type Error struct {
	Status      int
	Code        string // OAuth canonical error code, e.g. "invalid_grant"
	Description string
	err         error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.Description
}

func (e *Error) Unwrap() error { return e.err }

// WriteTo renders e directly to w, for the rare call site that builds
// an *Error outside the ErrorHandler flow (e.g. middleware that never
// returns to a HandlerWithError).
func (e *Error) WriteTo(w http.ResponseWriter) {
	if e.Code != "" {
		writeJSONError(w, e.Status, e.Code, e.Description)
		return
	}
	http.Error(w, e.Description, e.Status)
}

// WithCode wraps err as an *Error carrying the given HTTP status, with
// no OAuth error code (used for plain-text/"500"-class failures).
func WithCode(err error, status int) *Error {
	return &Error{Status: status, Description: err.Error(), err: err}
}

// WithOAuthError builds an *Error that renders the canonical
// {error, error_description} JSON body used throughout the OAuth
// endpoints.
func WithOAuthError(status int, code, description string) *Error {
	return &Error{Status: status, Code: code, Description: description}
}

// Code extracts the HTTP status from err, defaulting to 500 for errors
// that were not constructed via this package.
func Code(err error) int {
	var e *Error
	if as(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok { //nolint:errorlint // tight local unwrap loop
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// HandlerWithError is an HTTP handler that can return an error.
type HandlerWithError func(http.ResponseWriter, *http.Request) error

// ErrorHandler wraps fn and converts any returned error into an HTTP
// response. If the error is an *Error with an OAuth code, it renders
// the canonical {error, error_description} JSON body; otherwise it
// falls back to a plain-text body. 5xx errors are logged with full
// detail and only a generic message reaches the client.
func ErrorHandler(fn HandlerWithError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		var oe *Error
		hasOe := as(err, &oe)
		status := Code(err)

		if status >= http.StatusInternalServerError {
			logger.Errorw("internal server error", "path", r.URL.Path, "error", err)
			writeJSONError(w, status, "server_error", "an internal error occurred")
			return
		}

		logger.Warnw("request rejected", "path", r.URL.Path, "status", status, "error", err)

		if hasOe && oe.Code != "" {
			writeJSONError(w, status, oe.Code, oe.Description)
			return
		}
		http.Error(w, err.Error(), status)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}
