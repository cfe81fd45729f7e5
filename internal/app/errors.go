package app

import (
	"errors"

	"github.com/cvector/cvec-go/internal/domain/model"
)

// Sentinel kinds for client errors.
var (
	ErrMissingHost       = errors.New("CVEC_HOST must be set either as an argument or environment variable")
	ErrMissingAPIKey     = errors.New("CVEC_API_KEY must be set either as an argument or environment variable")
	ErrTableNotFound     = errors.New("table not found")
	ErrColumnNotFound    = errors.New("column not found")
	ErrUnexpectedContent = errors.New("unexpected response content type")
	ErrInvalidName       = errors.New("invalid metric name")

	// Model validation kinds, re-exported so callers need only this package.
	ErrInvalidFilter = model.ErrInvalidFilter
	ErrInvalidPost   = model.ErrInvalidPost
)
