// Package uuidx generates the identifiers used for workers.
package uuidx

import "github.com/google/uuid"

// New returns a version 7 UUID. Version 7 ids sort by creation time, which
// keeps log output ordered by worker start.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns New in its canonical string form.
func NewString() string {
	return New().String()
}
