// Package score ranks enriched vibes for a requested mood.
package score

import "github.com/sawanori/mapmapmap/internal/domain"

// Sub-score weights. They sum to 1.0 so the result stays in [0,1].
const (
	weightDistance = 0.45
	weightOpenNow  = 0.25
	weightRating   = 0.20
	weightMood     = 0.10
)

// Calculate returns a relevance score in [0,1] for a vibe under the requested
// mood. Distance at or beyond maxDistanceKm contributes zero, never a
// negative value. Unknown open-now and missing rating score neutral rather
// than being penalized.
func Calculate(v domain.Vibe, mood domain.Mood, maxDistanceKm float64) float64 {
	distScore := 1 - v.DistanceKm/maxDistanceKm
	if distScore < 0 {
		distScore = 0
	}

	openScore := 0.5
	if v.OpenNow != nil {
		if *v.OpenNow {
			openScore = 1
		} else {
			openScore = 0
		}
	}

	ratingScore := 0.5
	if v.Rating != nil {
		ratingScore = *v.Rating / 5
	}

	moodScore := v.MoodScore.For(mood) / 100

	return distScore*weightDistance +
		openScore*weightOpenNow +
		ratingScore*weightRating +
		moodScore*weightMood
}
