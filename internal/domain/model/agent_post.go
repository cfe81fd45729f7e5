package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Severity grades recommendations and tags on an agent post.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// AgentPostRecommendation is an actionable item attached to a post.
type AgentPostRecommendation struct {
	Content  string   `json:"content"`
	Severity Severity `json:"severity"`
}

// AgentPostTag labels a post.
type AgentPostTag struct {
	Content  string   `json:"content"`
	Severity Severity `json:"severity"`
}

// AgentPost is a message published by an operational agent.
type AgentPost struct {
	Author          string                    `json:"author"`
	Title           string                    `json:"title"`
	Content         *string                   `json:"content,omitempty"`
	ImageID         *uuid.UUID                `json:"image_id,omitempty"`
	Recommendations []AgentPostRecommendation `json:"recommendations,omitempty"`
	Tags            []AgentPostTag            `json:"tags,omitempty"`
}

// Validate checks required fields and severities.
func (p AgentPost) Validate() error {
	if p.Author == "" {
		return fmt.Errorf("%w: author is required", ErrInvalidPost)
	}
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidPost)
	}
	for i, r := range p.Recommendations {
		if r.Content == "" {
			return fmt.Errorf("%w: recommendation %d has empty content", ErrInvalidPost, i)
		}
		if !r.Severity.Valid() {
			return fmt.Errorf("%w: recommendation %d has unknown severity %q", ErrInvalidPost, i, r.Severity)
		}
	}
	for i, t := range p.Tags {
		if t.Content == "" {
			return fmt.Errorf("%w: tag %d has empty content", ErrInvalidPost, i)
		}
		if !t.Severity.Valid() {
			return fmt.Errorf("%w: tag %d has unknown severity %q", ErrInvalidPost, i, t.Severity)
		}
	}
	return nil
}
