package csvimport

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cvector/cvec-go/internal/adapters/http/client"
)

// ShowHelp prints usage information for the import tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `CVec CSV Import
===============

Imports CSV data with a header row of metric names into a cvec store.

Usage:
  csv-import [options] <file.csv>

Options:
  -prefix string
        Prefix to add to metric names (separated by '/')
  -host string
        Store host URL (overrides CVEC_HOST)
  -api-key string
        API key (overrides CVEC_API_KEY)
  -arrow
        Upload as an Arrow file instead of JSON
  -help
        Show this help message

CSV format:
  The header row must contain a 'timestamp' column; every other column is a
  metric name.

    timestamp,rain_rate,actual_inflow,predicted_inflow
    2025-01-01 00:00:00,0.5,100.2,95.8
    2025-01-01 01:00:00,1.2,150.5,145.3

Examples:
  csv-import data.csv
  csv-import -prefix sensors/building1 data.csv
`)
}

// ValidatePath checks that path names an existing regular file.
func ValidatePath(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: '%s'", ErrFileNotFound, path)
	}
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("'%s' is %w", path, ErrNotAFile)
	}
	return nil
}

// CfID returns the CloudFront request id carried by an HTTP error, if any.
func CfID(err error) string {
	var se *client.StatusError
	if errors.As(err, &se) {
		return se.CfID
	}
	return ""
}
