package enrich

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sawanori/mapmapmap/internal/domain"
)

const systemPrompt = `You are a specialized 'City Curator' editor for a high-end lifestyle magazine.

Analyze the raw place data (reviews, photos, attributes) and output a JSON object describing the 'Vibe' of the place.

Rules:
- Ignore generic praises like 'good food' or 'nice staff'. Focus on ATMOSPHERE.
- Catchphrase must be poetic, emotional, and short (max 30 chars in Japanese).
- If the place is a chain store or fast food, set 'is_rejected' to true.
- Extract 3 hashtags that describe the *situation* to use this place (e.g., #FirstDate, #SoloWork, #DeepTalk).
- mood_score must include 'chill', 'party', 'focus' dimensions (each 0-100).

Output ONLY a valid JSON object with this exact schema:
{
  "catchphrase": "string (max 30 chars in Japanese)",
  "vibe_tags": ["string", "string", "string"],
  "mood_score": { "chill": number, "party": number, "focus": number },
  "hidden_gems_info": "string",
  "is_rejected": boolean
}`

const (
	maxPromptReviews    = 5
	maxReviewSnippetLen = 200
)

// buildVenuePrompt serializes the venue attributes the model needs into a
// compact JSON payload.
func buildVenuePrompt(v *domain.Venue) string {
	snippets := make([]string, 0, maxPromptReviews)
	for i, r := range v.Reviews {
		if i >= maxPromptReviews {
			break
		}
		text := r.Text
		if text == "" {
			text = "(no text)"
		}
		snippets = append(snippets, fmt.Sprintf("[%g★] %s", r.Rating, truncate(text, maxReviewSnippetLen)))
	}
	reviews := strings.Join(snippets, "\n")
	if reviews == "" {
		reviews = "(no reviews)"
	}

	payload := map[string]any{
		"name":              v.Name,
		"types":             v.Types,
		"rating":            v.Rating,
		"address":           v.Address,
		"editorial_summary": v.EditorialSummary,
		"reviews":           reviews,
		"photo_count":       len(v.Photos),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"name":%q}`, v.Name)
	}
	return "Analyze this place and output JSON:\n\n" + string(data)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
