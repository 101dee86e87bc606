package domain

// Review is a single review snippet attached to a raw venue.
type Review struct {
	Rating float64
	Text   string
}

// Photo is a photo reference from the places provider.
type Photo struct {
	Name     string
	WidthPx  int
	HeightPx int
}

// Venue is a raw place record from the places-search provider.
// Immutable once fetched; sourced fresh on every pipeline run.
type Venue struct {
	ID               string
	Name             string
	Lat              float64
	Lng              float64
	Types            []string
	EditorialSummary string
	Rating           *float64
	Address          string
	OpenNow          *bool
	PriceLevel       *int
	WeekdayHours     []string
	Photos           []Photo
	Reviews          []Review
}

// categoryByType maps raw place types to display categories. First match wins.
var categoryByType = map[string]string{
	"cafe":               "Cafe",
	"coffee_shop":        "Cafe",
	"bakery":             "Cafe",
	"restaurant":         "Restaurant",
	"bar":                "Bar",
	"night_club":         "Bar",
	"park":               "Park",
	"museum":             "Museum",
	"art_gallery":        "Gallery",
	"book_store":         "Bookstore",
	"library":            "Library",
	"tourist_attraction": "Attraction",
	"spa":                "Wellness",
	"shopping_mall":      "Shopping",
}

// MapCategory resolves a display category from raw place types.
func MapCategory(types []string) string {
	for _, t := range types {
		if c, ok := categoryByType[t]; ok {
			return c
		}
	}
	return "Other"
}
