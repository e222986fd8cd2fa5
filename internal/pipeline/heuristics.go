package pipeline

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/siddhi-labs/citypulse/internal/event"
)

const earthRadiusKM = 6371.0

// Lexical fallback weights. Title and description dominate; keywords break
// ties between thin reports.
const (
	lexicalTitleWeight       = 0.4
	lexicalDescriptionWeight = 0.4
	lexicalKeywordWeight     = 0.2
)

func normalizeText(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	lastSpace := false
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

func tokenize(text string) []string {
	normalized := normalizeText(text)
	if normalized == "" {
		return nil
	}

	parts := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}

func tokenSet(text string) map[string]struct{} {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

func jaccard(left, right map[string]struct{}) float64 {
	if len(left) == 0 || len(right) == 0 {
		return 0
	}

	intersection := 0
	for token := range left {
		if _, ok := right[token]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}

	union := len(left) + len(right) - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func textJaccard(left, right string) float64 {
	return jaccard(tokenSet(left), tokenSet(right))
}

func keywordSet(keywords []string) map[string]struct{} {
	if len(keywords) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		for _, token := range tokenize(kw) {
			set[token] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// lexicalSimilarity is the deterministic fallback score used when the
// classification service is unavailable. Pure function of the two events'
// token sets.
func lexicalSimilarity(a, b *event.RawEvent) float64 {
	titleScore := textJaccard(a.Title, b.Title)
	descriptionScore := textJaccard(a.Description, b.Description)
	keywordScore := jaccard(keywordSet(a.Keywords), keywordSet(b.Keywords))

	return lexicalTitleWeight*titleScore +
		lexicalDescriptionWeight*descriptionScore +
		lexicalKeywordWeight*keywordScore
}

// haversineKM returns the great-circle distance between two points.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// locationsProximate is permissive when either side is unknown: a report
// without a location must still be comparable to one with a location.
// An area string, when both sides have one, wins over coordinates.
func locationsProximate(a, b *event.Location, radiusKM float64) bool {
	if a == nil || b == nil {
		return true
	}

	areaA := normalizeText(a.Area)
	areaB := normalizeText(b.Area)
	if areaA != "" && areaB != "" {
		return areaA == areaB
	}

	if a.HasCoordinates() && b.HasCoordinates() {
		return haversineKM(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude) <= radiusKM
	}

	return true
}

// timesProximate is permissive when either timestamp is unknown.
func timesProximate(a, b *time.Time, window time.Duration) bool {
	if a == nil || b == nil || a.IsZero() || b.IsZero() {
		return true
	}
	diff := a.Sub(*b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= window
}

// similarityContext builds the text sent to the similarity check for one side
// of a pair.
func similarityContext(e *event.RawEvent) string {
	parts := strings.TrimSpace(strings.TrimSpace(e.Title) + " " + strings.TrimSpace(e.Description))
	if e.Location != nil && strings.TrimSpace(e.Location.Area) != "" {
		parts = strings.TrimSpace(parts + " in " + strings.TrimSpace(e.Location.Area))
	}
	return parts
}
