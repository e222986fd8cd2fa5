package pipeline

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/siddhi-labs/citypulse/internal/event"
)

func TestProperty_LexicalSimilarityBoundsAndSymmetry(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genText := gen.AlphaString()

	properties.Property("score stays within [0,1] and is symmetric", prop.ForAll(
		func(titleA, titleB, descA, descB string) bool {
			a := event.RawEvent{ID: "a", Title: titleA, Description: descA}
			b := event.RawEvent{ID: "b", Title: titleB, Description: descB}

			forward := lexicalSimilarity(&a, &b)
			backward := lexicalSimilarity(&b, &a)

			if forward < 0 || forward > 1 {
				return false
			}
			return forward == backward
		},
		genText, genText, genText, genText,
	))

	properties.Property("an event is maximally similar to itself when it has text", prop.ForAll(
		func(title string) bool {
			if len(tokenize(title)) == 0 {
				return true
			}
			a := event.RawEvent{ID: "a", Title: title, Description: title, Keywords: []string{title}}
			return lexicalSimilarity(&a, &a) > 0.99
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestProperty_JaccardDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("repeated evaluation yields the same score", prop.ForAll(
		func(left, right string) bool {
			first := textJaccard(left, right)
			for i := 0; i < 5; i++ {
				if textJaccard(left, right) != first {
					return false
				}
			}
			return true
		},
		gen.AnyString(), gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestProperty_HaversineDistance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genLat := gen.Float64Range(-90, 90)
	genLon := gen.Float64Range(-180, 180)

	properties.Property("distance is non-negative and symmetric", prop.ForAll(
		func(lat1, lon1, lat2, lon2 float64) bool {
			forward := haversineKM(lat1, lon1, lat2, lon2)
			backward := haversineKM(lat2, lon2, lat1, lon1)
			return forward >= 0 && forward == backward
		},
		genLat, genLon, genLat, genLon,
	))

	properties.Property("a point is at distance zero from itself", prop.ForAll(
		func(lat, lon float64) bool {
			return haversineKM(lat, lon, lat, lon) == 0
		},
		genLat, genLon,
	))

	properties.TestingRun(t)
}

func TestProperty_MaxSeverityOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genSeverity := gen.OneConstOf(
		event.SeverityLow, event.SeverityModerate, event.SeverityHigh, event.SeverityCritical,
	)

	properties.Property("commutative and idempotent", prop.ForAll(
		func(a, b event.Severity) bool {
			if event.MaxSeverity(a, b) != event.MaxSeverity(b, a) {
				return false
			}
			return event.MaxSeverity(a, a) == a
		},
		genSeverity, genSeverity,
	))

	properties.Property("result is never below either input", prop.ForAll(
		func(a, b event.Severity) bool {
			max := event.MaxSeverity(a, b)
			return event.MaxSeverity(max, a) == max && event.MaxSeverity(max, b) == max
		},
		genSeverity, genSeverity,
	))

	properties.TestingRun(t)
}
