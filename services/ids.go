package services

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// IssueIDPrefix starts every issue id.
	IssueIDPrefix = "ISS-"
	issueIDLength = 6
	issueIDChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// maxIDAttempts bounds regeneration on collision with an active id.
	maxIDAttempts = 16
)

// IDGenerator returns a fresh issue id.
type IDGenerator func() (string, error)

// Clock returns the current time.
type Clock func() time.Time

// NewIssueID returns ISS- followed by six random uppercase alphanumerics.
func NewIssueID() (string, error) {
	suffix, err := gonanoid.Generate(issueIDChars, issueIDLength)
	if err != nil {
		return "", err
	}
	return IssueIDPrefix + suffix, nil
}
