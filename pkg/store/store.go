// Package store persists the configuration snapshots and modification
// records.
//
// Two snapshot documents exist: the original (last-fetched subscription
// base) and the working copy carrying user edits. Modifications are saved
// one file per record. The engine holds no process-wide state; callers
// inject a Store so tests can run against the in-memory implementation.
package store

import (
	"errors"
	"time"

	"github.com/clashdesk/clashdesk/pkg/patch"
	"github.com/clashdesk/clashdesk/pkg/snapshot"
)

// Common errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Summary describes a persisted modification for listings.
type Summary struct {
	Filename    string        `json:"filename"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Changes     patch.Summary `json:"changes_summary"`
}

// Store is the persistence boundary of the engine.
type Store interface {
	// LoadOriginal returns the base snapshot, or an empty snapshot when
	// none has been saved yet.
	LoadOriginal() (*snapshot.Snapshot, error)

	// SaveOriginal replaces the base snapshot wholesale.
	SaveOriginal(s *snapshot.Snapshot) error

	// LoadWorking returns the working snapshot. When none has been
	// persisted yet it returns a deep, independent copy of the original,
	// so the caller can never mutate the stored base through an alias.
	LoadWorking() (*snapshot.Snapshot, error)

	// SaveWorking persists the working snapshot.
	SaveWorking(s *snapshot.Snapshot) error

	// SavePatch persists a new modification record and returns its
	// assigned identifier ("{sanitized-name}_{timestamp}"). Fails with
	// ErrAlreadyExists when the identifier collides.
	SavePatch(m *patch.Modification) (string, error)

	// LoadPatch returns a modification by identifier. Fails with
	// ErrNotFound when absent and patch.ErrMalformed when unreadable.
	LoadPatch(id string) (*patch.Modification, error)

	// ListPatches returns summaries sorted by created_at descending.
	// Corrupt records are skipped, not fatal.
	ListPatches() ([]Summary, error)

	// DeletePatch removes a modification by identifier.
	DeletePatch(id string) error
}
