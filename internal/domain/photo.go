package domain

import "sort"

// SelectBestPhotos ranks photo references for display. Landscape shots are
// preferred (interior/atmosphere photos are usually landscape), then higher
// resolution, with the provider's array order as tiebreaker.
func SelectBestPhotos(photos []Photo, maxPhotos int) []Photo {
	if len(photos) == 0 || maxPhotos <= 0 {
		return nil
	}

	type scored struct {
		photo Photo
		score int
	}
	ranked := make([]scored, len(photos))
	for i, p := range photos {
		s := 0
		if p.WidthPx > p.HeightPx {
			s += 10
		}
		if p.WidthPx >= 1000 {
			s += 5
		}
		s -= i
		ranked[i] = scored{photo: p, score: s}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if maxPhotos > len(ranked) {
		maxPhotos = len(ranked)
	}
	out := make([]Photo, maxPhotos)
	for i := range out {
		out[i] = ranked[i].photo
	}
	return out
}

// SelectHeroPhoto picks the single best hero image, or nil if there are no photos.
func SelectHeroPhoto(photos []Photo) *Photo {
	best := SelectBestPhotos(photos, 1)
	if len(best) == 0 {
		return nil
	}
	return &best[0]
}
