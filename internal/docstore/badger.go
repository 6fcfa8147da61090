package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/cinewatch/cinewatch/internal/domain"
	domainerrors "github.com/cinewatch/cinewatch/internal/errors"
)

const (
	documentPrefix = "profile:"

	// maxConflictRetries bounds read-modify-write retries when two merges race on one document.
	maxConflictRetries = 5
)

// Badger is a Store backed by a local Badger database, one JSON value per user.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadger opens (or creates) the document database at path.
func OpenBadger(path string, logger *slog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	logger.Info("document store opened", "path", path)
	return &Badger{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	b.logger.Info("Closing document store")
	return b.db.Close()
}

func documentKey(uid string) []byte {
	return []byte(documentPrefix + uid)
}

// Get returns the user's document or ErrNotFound.
func (b *Badger) Get(ctx context.Context, uid string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc *Document
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = readDocument(txn, uid)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domainerrors.NotFoundf("profile document %s not found", uid)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", uid, err)
	}
	return doc, nil
}

// Merge validates and upserts the given fields.
// Validation failures return ErrValidation and nothing is written.
func (b *Badger) Merge(ctx context.Context, uid string, writes ...FieldWrite) error {
	if uid == "" {
		return domainerrors.Validation("document id is required")
	}
	if len(writes) == 0 {
		return nil
	}

	encoded := make([]json.RawMessage, len(writes))
	for i, w := range writes {
		raw, err := encodeField(w)
		if err != nil {
			return err
		}
		encoded[i] = raw
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		stale := make(map[domain.Field]uint64)
		err := b.db.Update(func(txn *badger.Txn) error {
			clear(stale)

			doc, err := readDocument(txn, uid)
			if errors.Is(err, badger.ErrKeyNotFound) {
				doc = newDocument(uid)
			} else if err != nil {
				return err
			}

			for i, w := range writes {
				if w.Seq != 0 {
					if stored := doc.Seq[w.Field]; w.Seq <= stored {
						stale[w.Field] = stored
						continue
					}
					doc.Seq[w.Field] = w.Seq
				}
				doc.Fields[w.Field] = encoded[i]
			}

			data, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("marshal document: %w", err)
			}
			return txn.Set(documentKey(uid), data)
		})

		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		if err != nil {
			return fmt.Errorf("merge document %s: %w", uid, err)
		}

		if len(stale) > 0 {
			b.logger.Debug("ignored stale field writes", "uid", uid, "fields", len(stale))
			return &StaleWriteError{UID: uid, Stored: stale}
		}
		return nil
	}
}

// Scan yields every profile document in key order.
func (b *Badger) Scan(ctx context.Context) iter.Seq2[*Document, error] {
	return func(yield func(*Document, error) bool) {
		prefix := []byte(documentPrefix)
		stopped := false

		err := b.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}

				doc := &Document{}
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, doc)
				}); err != nil {
					return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
				}
				doc.normalize()

				if !yield(doc, nil) {
					stopped = true
					return nil
				}
			}
			return nil
		})

		if err != nil && !stopped {
			yield(nil, fmt.Errorf("scan documents: %w", err))
		}
	}
}

func readDocument(txn *badger.Txn, uid string) (*Document, error) {
	item, err := txn.Get(documentKey(uid))
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, doc)
	}); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc.normalize()
	return doc, nil
}

func (d *Document) normalize() {
	if d.Fields == nil {
		d.Fields = make(map[domain.Field]json.RawMessage)
	}
	if d.Seq == nil {
		d.Seq = make(map[domain.Field]uint64)
	}
}

// encodeField marshals a write and checks it against the shape the field must have.
func encodeField(w FieldWrite) (json.RawMessage, error) {
	raw, err := json.Marshal(w.Value)
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeValidation, "field %s is not encodable", w.Field)
	}

	switch w.Field {
	case domain.FieldEmail:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, domainerrors.Validationf("field %s must be a string", w.Field)
		}
	case domain.FieldWatchlist, domain.FieldViewed:
		var ids []domain.TitleID
		if err := json.Unmarshal(raw, &ids); err != nil || ids == nil && !isArray(raw) {
			return nil, domainerrors.Validationf("field %s must be a list of title ids", w.Field)
		}
	case domain.FieldRatings:
		if err := validateRatings(raw); err != nil {
			return nil, err
		}
	default:
		return nil, domainerrors.Validationf("unknown field %q", w.Field)
	}
	return raw, nil
}

func isArray(raw json.RawMessage) bool {
	var items []json.RawMessage
	return json.Unmarshal(raw, &items) == nil && items != nil
}

func validateRatings(raw json.RawMessage) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return domainerrors.Validation("ratings must be an object keyed by title id")
	}

	for key, v := range m {
		if _, err := strconv.Atoi(key); err != nil {
			return domainerrors.Validationf("rating key %q is not a title id", key)
		}
		if !isValidRating(v) {
			return domainerrors.Validationf("rating for %s must be an integer from %d to %d", key, domain.MinRating, domain.MaxRating)
		}
	}
	return nil
}

// isValidRating accepts only a JSON integer in range. Strings and fractions are rejected.
func isValidRating(raw json.RawMessage) bool {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return false
	}
	n, ok := v.(json.Number)
	if !ok {
		return false
	}
	r, err := n.Int64()
	return err == nil && domain.ValidRating(int(r))
}
