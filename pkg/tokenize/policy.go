package tokenize

import (
	"regexp"
	"slices"
	"strconv"

	"mercator-hq/veil/pkg/detector"
)

const (
	// DefaultAgeThreshold is the oldest age left in clear text.
	DefaultAgeThreshold = 89

	// DefaultMaxAge bounds plausible ages; larger values are unparseable.
	DefaultMaxAge = 120
)

var ageDigits = regexp.MustCompile(`\d{2,3}`)

// Policy decides which detected spans are replaced by placeholders.
//
// Every span is redacted except age-labelled spans whose value parses and is
// at most AgeThreshold. An age that cannot be parsed is redacted.
type Policy struct {
	// AgeLabels lists entity types treated as ages. Default: ["AGE"].
	AgeLabels []string

	// AgeThreshold is the largest age kept verbatim. It is used as given;
	// zero or below redacts every age. DefaultPolicy sets 89.
	AgeThreshold int

	// MaxAge is the largest value accepted as an age. Default: 120.
	MaxAge int
}

// DefaultPolicy returns the standard age exception policy.
func DefaultPolicy() Policy {
	return Policy{
		AgeLabels:    []string{detector.EntityAge},
		AgeThreshold: DefaultAgeThreshold,
		MaxAge:       DefaultMaxAge,
	}
}

func (p Policy) withDefaults() Policy {
	if len(p.AgeLabels) == 0 {
		p.AgeLabels = []string{detector.EntityAge}
	}
	if p.MaxAge == 0 {
		p.MaxAge = DefaultMaxAge
	}
	return p
}

// ShouldRedact reports whether a span with the given label and matched text
// must be replaced.
func (p Policy) ShouldRedact(label, matched string) bool {
	if !slices.Contains(p.AgeLabels, label) {
		return true
	}
	age, ok := p.ParseAge(matched)
	if !ok {
		return true
	}
	return age > p.AgeThreshold
}

// ParseAge extracts the first two- or three-digit number from text. Values
// outside [0, MaxAge] are rejected.
func (p Policy) ParseAge(text string) (int, bool) {
	digits := ageDigits.FindString(text)
	if digits == "" {
		return 0, false
	}
	age, err := strconv.Atoi(digits)
	if err != nil || age < 0 || age > p.MaxAge {
		return 0, false
	}
	return age, true
}
