package domain

// Fragment is the generative-model subset of a Vibe: everything the model
// produces, without the raw venue fields the pipeline fills in itself.
type Fragment struct {
	Catchphrase    string
	VibeTags       []string
	MoodScore      MoodScore
	HiddenGemsInfo string
	IsRejected     bool
}

// DegradedFragment is the fixed valid-shaped placeholder returned when
// enrichment cannot produce real output. Downstream filters and scoring
// expect the full shape, so failures are never encoded as nil.
func DegradedFragment() Fragment {
	return Fragment{
		Catchphrase:    "ここにしかない空気がある",
		VibeTags:       []string{"#隠れ家", "#散策", "#発見"},
		MoodScore:      NeutralMoodScore(),
		HiddenGemsInfo: "",
		IsRejected:     false,
	}
}

// Vibe is a venue combined with generative atmosphere metadata. This is the
// unit the pipeline filters, scores, caches, and returns.
type Vibe struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Catchphrase    string    `json:"catchphrase"`
	VibeTags       []string  `json:"vibe_tags"`
	HeroImageURL   string    `json:"hero_image_url"`
	MoodScore      MoodScore `json:"mood_score"`
	HiddenGemsInfo string    `json:"hidden_gems_info"`
	IsRejected     bool      `json:"is_rejected"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	Category       string    `json:"category"`
	Rating         *float64  `json:"rating"`
	Address        *string   `json:"address"`
	OpenNow        *bool     `json:"open_now"`
	PriceLevel     *int      `json:"price_level"`
	OpeningHours   []string  `json:"opening_hours"`

	// DistanceKm is recomputed against the current user position on every
	// request; a cached value is stale the moment the user moves.
	DistanceKm float64 `json:"distance_km"`
}

// Filters are the request-scoped user filters applied after enrichment.
type Filters struct {
	OpenNow       bool
	MaxPriceLevel *int
	Keyword       string
}
