// Package docstore is the per-user profile document store: point reads,
// field-level merge-writes and full scans over every user's document.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/cinewatch/cinewatch/internal/domain"
)

// Store is the remote document store as seen by the rest of the app.
//
// Get returns errors.ErrNotFound when the user has no document yet.
// Merge upserts only the given fields and creates the document if absent.
// Scan yields every document; iteration stops at the first error.
type Store interface {
	Get(ctx context.Context, uid string) (*Document, error)
	Merge(ctx context.Context, uid string, writes ...FieldWrite) error
	Scan(ctx context.Context) iter.Seq2[*Document, error]
}

// FieldWrite is one top-level field to upsert.
// A write whose Seq is not greater than the field's stored sequence is not
// applied and Merge reports it with a *StaleWriteError.
// Seq 0 always applies and leaves the stored sequence unchanged.
type FieldWrite struct {
	Field domain.Field
	Value any
	Seq   uint64
}

// ErrStaleWrite matches every StaleWriteError.
var ErrStaleWrite = errors.New("stale field write")

// StaleWriteError reports sequenced writes that were not applied because the
// document already holds a sequence at least as high for the field. The other
// writes of the same merge were applied.
type StaleWriteError struct {
	UID string
	// Stored is the sequence held by the document for each skipped field.
	Stored map[domain.Field]uint64
}

func (e *StaleWriteError) Error() string {
	fields := slices.Sorted(maps.Keys(e.Stored))
	return fmt.Sprintf("stale write to %s: fields %v", e.UID, fields)
}

// Is makes errors.Is(err, ErrStaleWrite) work.
func (e *StaleWriteError) Is(target error) bool {
	return target == ErrStaleWrite
}

// Set builds an unsequenced write.
func Set(field domain.Field, value any) FieldWrite {
	return FieldWrite{Field: field, Value: value}
}
