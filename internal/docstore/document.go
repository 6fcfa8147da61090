package docstore

import (
	"bytes"
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/cinewatch/cinewatch/internal/domain"
)

// Document is a raw user profile document. Field values are kept as JSON
// because other writers may have stored shapes this app would not write.
type Document struct {
	UID    string                           `json:"uid"`
	Fields map[domain.Field]json.RawMessage `json:"fields"`
	Seq    map[domain.Field]uint64          `json:"_seq,omitempty"`
}

func newDocument(uid string) *Document {
	return &Document{
		UID:    uid,
		Fields: make(map[domain.Field]json.RawMessage),
		Seq:    make(map[domain.Field]uint64),
	}
}

// Has reports whether the field is present.
func (d *Document) Has(field domain.Field) bool {
	_, ok := d.Fields[field]
	return ok
}

// RatingEntry is one rating read back leniently from a document.
type RatingEntry struct {
	Title domain.TitleID
	Value float64
}

// Ratings decodes the ratings field leniently. JSON numbers and numeric
// strings are accepted; non-numeric values and non-integer keys are skipped
// and counted. Entries are returned ordered by title id.
func (d *Document) Ratings() (entries []RatingEntry, skipped int) {
	raw, ok := d.Fields[domain.FieldRatings]
	if !ok || isNull(raw) {
		return nil, 0
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		// A ratings field that is not an object at all counts as one bad value.
		return nil, 1
	}

	for key, v := range m {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			skipped++
			continue
		}
		value, ok := coerceNumber(v)
		if !ok {
			skipped++
			continue
		}
		entries = append(entries, RatingEntry{Title: domain.TitleID(id), Value: value})
	}

	slices.SortFunc(entries, func(a, b RatingEntry) int { return cmp.Compare(a.Title, b.Title) })
	return entries, skipped
}

// Profile projects the document onto the typed profile. Missing or
// unreadable fields come back empty. Ratings that are not whole numbers are dropped.
func (d *Document) Profile() *domain.UserProfileDocument {
	p := domain.NewUserProfileDocument(d.UID, "")

	if raw, ok := d.Fields[domain.FieldEmail]; ok {
		_ = json.Unmarshal(raw, &p.Email)
	}
	p.Watchlist = decodeTitles(d.Fields[domain.FieldWatchlist])
	p.Viewed = decodeTitles(d.Fields[domain.FieldViewed])

	entries, _ := d.Ratings()
	for _, e := range entries {
		if e.Value == math.Trunc(e.Value) {
			p.Ratings[e.Title] = int(e.Value)
		}
	}
	return p
}

func decodeTitles(raw json.RawMessage) []domain.TitleID {
	out := []domain.TitleID{}
	if len(raw) == 0 || isNull(raw) {
		return out
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		v, ok := coerceNumber(item)
		if !ok || v != math.Trunc(v) {
			continue
		}
		id := domain.TitleID(v)
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// coerceNumber accepts a JSON number or a string holding one.
func coerceNumber(raw json.RawMessage) (float64, bool) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	switch t := v.(type) {
	case json.Number:
		n = t
	case string:
		n = json.Number(strings.TrimSpace(t))
	default:
		return 0, false
	}

	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
