package detector

import (
	"context"
	"slices"
)

// Entity labels understood by the gateway.
const (
	EntityPerson        = "PERSON"
	EntityPhoneNumber   = "PHONE_NUMBER"
	EntityEmailAddress  = "EMAIL_ADDRESS"
	EntityDateTime      = "DATE_TIME"
	EntityLocation      = "LOCATION"
	EntitySSN           = "US_SSN"
	EntityDriverLicense = "US_DRIVER_LICENSE"
	EntityMedicalRecord = "MEDICAL_RECORD_NUMBER"
	EntityAge           = "AGE"
	EntityCreditCard    = "CREDIT_CARD"
	EntityPassport      = "US_PASSPORT"
	EntityIPAddress     = "IP_ADDRESS"
	EntityIBAN          = "IBAN_CODE"
	EntityURL           = "URL"
)

// DefaultEntities is the allow-list passed to detectors when none is configured.
var DefaultEntities = []string{
	EntityPerson,
	EntityPhoneNumber,
	EntityEmailAddress,
	EntityDateTime,
	EntityLocation,
	EntitySSN,
	EntityDriverLicense,
	EntityMedicalRecord,
	EntityAge,
	EntityCreditCard,
	EntityPassport,
	EntityIPAddress,
	EntityIBAN,
	EntityURL,
}

// Span is a detected sensitive substring. Start and End are byte offsets
// into the analysed text, End exclusive.
type Span struct {
	Type  string  `json:"entity_type"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// Len returns the span's length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether s and o share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Detector locates sensitive spans in text. Only spans whose type is in
// entities are returned; an empty entities list means "all supported".
type Detector interface {
	Detect(ctx context.Context, text string, entities []string) ([]Span, error)
}

// Func adapts an ordinary function to the Detector interface.
type Func func(ctx context.Context, text string, entities []string) ([]Span, error)

// Detect calls f.
func (f Func) Detect(ctx context.Context, text string, entities []string) ([]Span, error) {
	return f(ctx, text, entities)
}

// Static returns a Detector that always reports spans, filtered by the
// requested entities. It is meant for tests and offline tooling.
func Static(spans ...Span) Detector {
	return Func(func(_ context.Context, _ string, entities []string) ([]Span, error) {
		return FilterEntities(slices.Clone(spans), entities), nil
	})
}

// FilterEntities keeps spans whose type is in entities. An empty entities
// list keeps everything.
func FilterEntities(spans []Span, entities []string) []Span {
	if len(entities) == 0 {
		return spans
	}
	out := spans[:0]
	for _, s := range spans {
		if slices.Contains(entities, s.Type) {
			out = append(out, s)
		}
	}
	return out
}

// FilterScore drops spans scoring below min.
func FilterScore(spans []Span, min float64) []Span {
	if min <= 0 {
		return spans
	}
	out := spans[:0]
	for _, s := range spans {
		if s.Score >= min {
			out = append(out, s)
		}
	}
	return out
}
