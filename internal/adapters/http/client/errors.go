package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds for transport errors.
var (
	ErrInvalidAPIKey = errors.New("invalid api key")
	ErrConfigFetch   = errors.New("failed to fetch host config")
	ErrNoAccessToken = errors.New("no access token available, login first")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrDecode        = errors.New("failed to decode response")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
	// CfID is the CloudFront request id, useful when reporting failures.
	CfID string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: HTTP %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}
