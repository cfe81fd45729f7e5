package arrowcodec

import "errors"

var (
	// ErrSchema is returned when an Arrow file lacks a required column or
	// a column has an unsupported type.
	ErrSchema = errors.New("arrow schema mismatch")
	// ErrRead wraps IPC decoding failures.
	ErrRead = errors.New("failed to read arrow data")
	// ErrWrite wraps IPC encoding failures.
	ErrWrite = errors.New("failed to write arrow data")
)
