package model

import "time"

// TagSource identifies where a reading group comes from.
type TagSource string

const (
	SourceSensor   TagSource = "sensor_readings"
	SourceModeling TagSource = "modeling"
)

// DefaultDesiredPoints is the server-side downsampling target used when the
// caller does not pick one.
const DefaultDesiredPoints = 10000

// ModelingReading is one downsampled reading; Timestamp is unix seconds.
type ModelingReading struct {
	TagID     int     `json:"tag_id"`
	TagValue  float64 `json:"tag_value"`
	Timestamp float64 `json:"timestamp"`
}

// Time converts Timestamp to a UTC time.
func (r ModelingReading) Time() time.Time {
	sec := int64(r.Timestamp)
	nsec := int64((r.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

// ModelingReadingsGroup holds the readings of one tag.
type ModelingReadingsGroup struct {
	TagID  int               `json:"tag_id"`
	Data   []ModelingReading `json:"data"`
	Source TagSource         `json:"source"`
}

// ModelingReadingsResponse is the body returned for a readings query.
type ModelingReadingsResponse struct {
	Items []ModelingReadingsGroup `json:"items"`
}

// FetchModelingReadingsRequest queries readings for tags within a window.
type FetchModelingReadingsRequest struct {
	TagIDs        []int     `json:"tag_ids"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	DesiredPoints int       `json:"desired_points"`
}

// LatestReadingsRequest asks for the current value of tags.
type LatestReadingsRequest struct {
	TagIDs []int `json:"tag_ids"`
}

// LatestReading is the current value of one tag.
type LatestReading struct {
	TagID             int       `json:"tag_id"`
	TagValue          float64   `json:"tag_value"`
	TagValueChangedAt time.Time `json:"tag_value_changed_at"`
}

// LatestReadingsResponse is the body returned for a latest-readings query.
type LatestReadingsResponse struct {
	Items []LatestReading `json:"items"`
}
