package csvimport

import "errors"

var (
	ErrEmptyCSV          = errors.New("CSV file appears to be empty or malformed")
	ErrNoTimestampColumn = errors.New("CSV must have a 'timestamp' column")
	ErrNoMetricColumns   = errors.New("no metric columns found in CSV")
	ErrBadTimestamp      = errors.New("unable to parse timestamp")
	ErrFileNotFound      = errors.New("CSV file does not exist")
	ErrNotAFile          = errors.New("not a file")
)
