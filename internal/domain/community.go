package domain

// DefaultCommunityTopN is the number of titles kept in the community ranking.
const DefaultCommunityTopN = 10

// CommunityMovie is a title ranked by its average rating across all users.
// It is derived on demand and never persisted.
type CommunityMovie struct {
	ID         TitleID `json:"id"`
	AvgRating  float64 `json:"avgRating"`
	Votes      int     `json:"votes"`
	Title      string  `json:"title"`
	PosterPath string  `json:"poster_path"`
	Hydrated   bool    `json:"hydrated"`
}

// TitleSummary is the catalog metadata needed to display a title in a list.
type TitleSummary struct {
	ID         TitleID `json:"id"`
	Title      string  `json:"title"`
	PosterPath string  `json:"poster_path"`
}

// HasPoster reports whether the summary can be shown in poster lists.
func (t *TitleSummary) HasPoster() bool {
	return t != nil && t.PosterPath != ""
}
