package domain

import "slices"

// TitleID identifies a title in the external catalog's identifier space.
type TitleID int

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r is an accepted rating value.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// Field names a top-level field of a user profile document.
type Field string

// Profile document fields.
const (
	FieldEmail     Field = "email"
	FieldWatchlist Field = "watchlist"
	FieldViewed    Field = "viewed"
	FieldRatings   Field = "ratings"
)

// UserProfileDocument is the durable per-user projection of watchlist,
// viewed set and ratings.
type UserProfileDocument struct {
	UID       string
	Email     string
	Watchlist []TitleID
	Viewed    []TitleID
	Ratings   map[TitleID]int
}

// NewUserProfileDocument returns an empty document for uid.
func NewUserProfileDocument(uid, email string) *UserProfileDocument {
	return &UserProfileDocument{
		UID:       uid,
		Email:     email,
		Watchlist: []TitleID{},
		Viewed:    []TitleID{},
		Ratings:   map[TitleID]int{},
	}
}

// ToggleTitle flips membership of id in set. The input slice is not modified.
// Insertion order of the remaining members is preserved and new members are appended.
func ToggleTitle(set []TitleID, id TitleID) []TitleID {
	if i := slices.Index(set, id); i >= 0 {
		out := make([]TitleID, 0, len(set)-1)
		out = append(out, set[:i]...)
		return append(out, set[i+1:]...)
	}
	out := make([]TitleID, 0, len(set)+1)
	out = append(out, set...)
	return append(out, id)
}

// ProfileStats summarizes a profile for display.
type ProfileStats struct {
	Watchlist int `json:"watchlist"`
	Viewed    int `json:"viewed"`
	Rated     int `json:"rated"`
}
