// Package store persists classified runs so they can be inspected after
// the command that produced them has returned.
package store

import (
	"errors"

	"github.com/deixis/verdict/internal/outcome"
)

// ErrNotFound is returned by Load when no record exists for a run ID.
var ErrNotFound = errors.New("run not found")

// Store persists and retrieves run records.
type Store interface {
	Save(rec *outcome.Record) error
	Load(runID string) (*outcome.Record, error)
}
