package model

import (
	"strings"
	"time"
)

// Source identifies where a communication record originated.
type Source string

const (
	SourceEmail   Source = "email"
	SourceProject Source = "project"
	SourceUnknown Source = "unknown"
)

// AllSources returns the defined record sources.
func AllSources() []Source {
	return []Source{SourceEmail, SourceProject}
}

// ParseSource maps a raw source tag to a closed Source value.
// Unrecognized tags map to SourceUnknown rather than passing through.
func ParseSource(s string) Source {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceEmail:
		return SourceEmail
	case SourceProject:
		return SourceProject
	default:
		return SourceUnknown
	}
}

// Record is a single communication unit handed to the pipeline. Records are
// immutable once submitted; the pipeline never writes to them.
//
// Several attributes exist in two flavors depending on the origin system
// (email vs. project tracker). The accessor methods below define the one
// canonical fallback order for each; read sites must use the accessors
// instead of touching the raw fields.
type Record struct {
	ID          string     `json:"id"`
	Subject     string     `json:"subject,omitempty"`
	Title       string     `json:"title,omitempty"`
	Sender      string     `json:"sender,omitempty"`
	Author      string     `json:"author,omitempty"`
	Body        string     `json:"body,omitempty"`
	Description string     `json:"description,omitempty"`
	Source      Source     `json:"source"`
	Agent       string     `json:"agent"`
	Date        *time.Time `json:"date,omitempty"`
	Status      string     `json:"status,omitempty"`
}

const noSubject = "(no subject)"

// UnknownSender is the sender identity assigned to records that carry
// neither a sender nor an author.
const UnknownSender = "Unknown"

// DisplayTitle returns the best available title: Subject, then Title,
// then a "(no subject)" placeholder.
func (r Record) DisplayTitle() string {
	if s := strings.TrimSpace(r.Subject); s != "" {
		return s
	}
	if s := strings.TrimSpace(r.Title); s != "" {
		return s
	}
	return noSubject
}

// BodyText returns the best available body: Body, then Description,
// then the empty string.
func (r Record) BodyText() string {
	if s := strings.TrimSpace(r.Body); s != "" {
		return s
	}
	return strings.TrimSpace(r.Description)
}

// SenderID returns the best available sender identity: Sender, then Author,
// then the UnknownSender literal.
func (r Record) SenderID() string {
	if s := strings.TrimSpace(r.Sender); s != "" {
		return s
	}
	if s := strings.TrimSpace(r.Author); s != "" {
		return s
	}
	return UnknownSender
}

// AnalysisContext carries run-scoped metadata shared by every batch call.
// It is passed by reference and never mutated.
type AnalysisContext struct {
	InstanceID   int64  `json:"instance_id"`
	InstanceName string `json:"instance_name"`
	Period       string `json:"period"`
	AgentID      string `json:"agent_id"`
}
