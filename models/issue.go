package models

import (
	"time"
)

// IssueStatus enum. Values outside the constants below are stored as given.
type IssueStatus string

const (
	Pending    IssueStatus = "pending"
	InProgress IssueStatus = "in-progress"
	Resolved   IssueStatus = "resolved"
)

// IssuePriority enum
type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
)

// DefaultReporter is recorded when a report arrives without a reporter name.
const DefaultReporter = "Citizen User"

// MediaRef is file metadata produced by the upload endpoint. Issues carry
// media as the client sent it, so stored entries need not have this shape.
type MediaRef struct {
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url"`
	Mimetype string `json:"mimetype"`
	Size     int64  `json:"size"`
}

// Update is one append-only annotation on an issue.
type Update struct {
	Date time.Time `json:"date"`
	Note string    `json:"note"`
	By   string    `json:"by"`
}

// Issue represents a civic issue reported by a citizen.
// Coordinates, Media and VoiceNote are opaque JSON values.
type Issue struct {
	ID          string        `json:"id"`
	Type        string        `json:"type,omitempty"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Location    string        `json:"location"`
	Coordinates any           `json:"coordinates"`
	Status      IssueStatus   `json:"status"`
	Priority    IssuePriority `json:"priority"`
	ReportedBy  string        `json:"reportedBy"`
	ReportedAt  time.Time     `json:"reportedAt"`
	AssignedTo  *string       `json:"assignedTo"`
	AssignedAt  *time.Time    `json:"assignedAt"`
	Department  *string       `json:"department"`
	Media       []any         `json:"media"`
	VoiceNote   any           `json:"voiceNote"`
	Updates     []Update      `json:"updates"`
}

// Normalize replaces nil slices so the issue always serializes with empty arrays.
func (i *Issue) Normalize() {
	if i.Media == nil {
		i.Media = []any{}
	}
	if i.Updates == nil {
		i.Updates = []Update{}
	}
}

// ArchivedIssue is an issue moved out of the active collection.
type ArchivedIssue struct {
	Issue
	ArchivedAt time.Time `json:"archivedAt"`
}
