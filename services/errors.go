package services

import "errors"

// ErrNotFound is returned when an id is absent from the active collection.
var ErrNotFound = errors.New("not found")
