package model

import "errors"

// Sentinel kinds for model validation errors.
var (
	ErrInvalidValue  = errors.New("value must be a number, a string or null")
	ErrInvalidFilter = errors.New("invalid eav filter")
	ErrInvalidPost   = errors.New("invalid agent post")
)
