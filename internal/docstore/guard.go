package docstore

import (
	"context"
	"iter"

	domainerrors "github.com/cinewatch/cinewatch/internal/errors"
)

// Authorizer reports the uid of the signed-in caller.
type Authorizer interface {
	CurrentUID() (string, bool)
}

// Guarded enforces the document access rules in front of another Store:
// a user may read and write only their own document, and any signed-in
// user may scan the collection.
type Guarded struct {
	next Store
	auth Authorizer
}

// NewGuarded wraps next with access checks.
func NewGuarded(next Store, auth Authorizer) *Guarded {
	return &Guarded{next: next, auth: auth}
}

func (g *Guarded) requireOwner(uid string) error {
	current, ok := g.auth.CurrentUID()
	if !ok {
		return domainerrors.PermissionDenied("not signed in")
	}
	if current != uid {
		return domainerrors.PermissionDenied("document belongs to another user")
	}
	return nil
}

// Get implements Store.
func (g *Guarded) Get(ctx context.Context, uid string) (*Document, error) {
	if err := g.requireOwner(uid); err != nil {
		return nil, err
	}
	return g.next.Get(ctx, uid)
}

// Merge implements Store.
func (g *Guarded) Merge(ctx context.Context, uid string, writes ...FieldWrite) error {
	if err := g.requireOwner(uid); err != nil {
		return err
	}
	return g.next.Merge(ctx, uid, writes...)
}

// Scan implements Store.
func (g *Guarded) Scan(ctx context.Context) iter.Seq2[*Document, error] {
	if _, ok := g.auth.CurrentUID(); !ok {
		return func(yield func(*Document, error) bool) {
			yield(nil, domainerrors.PermissionDenied("scan requires a signed-in user"))
		}
	}
	return g.next.Scan(ctx)
}
