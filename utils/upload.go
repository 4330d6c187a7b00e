package utils

import (
	"fmt"
	"regexp"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SafeFilename replaces every character outside [a-zA-Z0-9_.-] with '_'.
func SafeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// UniqueUploadName builds "<unix millis>-<6 char id>-<safe original name>".
func UniqueUploadName(original string, now time.Time) (string, error) {
	id, err := gonanoid.New(6)
	if err != nil {
		return "", fmt.Errorf("generate upload id: %w", err)
	}
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), id, SafeFilename(original)), nil
}
