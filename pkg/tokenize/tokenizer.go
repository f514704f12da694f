package tokenize

import (
	"slices"
	"strings"
	"unicode/utf8"

	"mercator-hq/veil/pkg/detector"
	"mercator-hq/veil/pkg/vault"
)

// DefaultMaxAttempts bounds placeholder regeneration on collision.
const DefaultMaxAttempts = 16

// Store is the slice of the vault the tokenizer needs. MergeNew must merge
// atomically and refuse keys the session already holds.
type Store interface {
	Get(sessionID string) (vault.Mapping, bool)
	MergeNew(sessionID string, mapping vault.Mapping) (vault.Mapping, []string)
}

// Options configures a Tokenizer. Zero values take defaults.
type Options struct {
	// Policy overrides DefaultPolicy. Empty AgeLabels and MaxAge are
	// filled in; AgeThreshold is taken as is.
	Policy      *Policy
	Generator   Generator
	MaxAttempts int
}

// Result is the outcome of one Tokenize call.
type Result struct {
	// SanitizedText is the input with every accepted span replaced.
	SanitizedText string

	// Accepted lists the redacted spans with offsets into the original
	// text, ascending by start. Text holds original values and must not be
	// shown to untrusted consumers.
	Accepted []detector.Span

	// Kept lists age spans left in place by the policy.
	Kept []detector.Span

	// Placeholders maps the placeholders created by this call.
	Placeholders vault.Mapping

	// Mapping is the full session mapping after the merge.
	Mapping vault.Mapping
}

// Tokenizer replaces detected spans with placeholders and records the
// replacements in a Store under the caller's session.
type Tokenizer struct {
	store       Store
	policy      Policy
	gen         Generator
	maxAttempts int
}

// New creates a Tokenizer backed by store.
func New(store Store, opts Options) *Tokenizer {
	if opts.Generator == nil {
		opts.Generator = RandomGenerator{}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	policy := DefaultPolicy()
	if opts.Policy != nil {
		policy = opts.Policy.withDefaults()
	}
	return &Tokenizer{
		store:       store,
		policy:      policy,
		gen:         opts.Generator,
		maxAttempts: opts.MaxAttempts,
	}
}

// Policy returns the redaction policy in effect.
func (t *Tokenizer) Policy() Policy {
	return t.policy
}

// Tokenize rewrites text, replacing each span the policy redacts with a
// fresh placeholder, and merges the new placeholders into the session.
//
// Spans are validated first; an out-of-range offset or one that splits a
// UTF-8 sequence fails the whole call with an *InvalidSpanError before any
// state changes. Overlapping spans are resolved by ResolveOverlaps. When no
// span ends up redacted the store is not touched.
func (t *Tokenizer) Tokenize(text, sessionID string, spans []detector.Span) (*Result, error) {
	if err := validateSpans(text, spans); err != nil {
		return nil, err
	}

	res := &Result{SanitizedText: text}
	if len(spans) == 0 {
		res.Mapping, _ = t.store.Get(sessionID)
		return res, nil
	}

	// Matched text always comes from the input, not from the detector.
	normalized := make([]detector.Span, len(spans))
	for i, s := range spans {
		s.Text = text[s.Start:s.End]
		normalized[i] = s
	}

	var redact []detector.Span
	for _, s := range ResolveOverlaps(normalized) {
		if t.policy.ShouldRedact(s.Type, s.Text) {
			redact = append(redact, s)
		} else {
			res.Kept = append(res.Kept, s)
		}
	}

	reverse(res.Kept)
	if len(redact) == 0 {
		res.Mapping, _ = t.store.Get(sessionID)
		return res, nil
	}

	// Placeholders are checked against a snapshot of the session. A
	// concurrent call may claim one before the merge; MergeNew then refuses
	// and the rewrite runs again against the fresher mapping.
	existing, _ := t.store.Get(sessionID)
	for range t.maxAttempts {
		sanitized, working, err := t.rewrite(text, sessionID, redact, existing)
		if err != nil {
			return nil, err
		}
		merged, clash := t.store.MergeNew(sessionID, working)
		if len(clash) > 0 {
			existing = merged
			continue
		}

		accepted := slices.Clone(redact)
		reverse(accepted)
		res.SanitizedText = sanitized
		res.Accepted = accepted
		res.Placeholders = working
		res.Mapping = merged
		return res, nil
	}
	return nil, ErrPlaceholderExhausted
}

// rewrite splices a fresh placeholder over each span in redact, which is
// ordered by descending start.
func (t *Tokenizer) rewrite(text, sessionID string, redact []detector.Span, existing vault.Mapping) (string, vault.Mapping, error) {
	working := make(vault.Mapping, len(redact))

	// Collect segments back to front and emit them in reverse.
	segments := make([]string, 0, 2*len(redact)+1)
	tail := len(text)
	for _, s := range redact {
		ph, err := t.placeholder(sessionID, s.Type, existing, working)
		if err != nil {
			return "", nil, err
		}
		working[ph] = s.Text
		segments = append(segments, text[s.End:tail], ph)
		tail = s.Start
	}
	segments = append(segments, text[:tail])

	var sb strings.Builder
	sb.Grow(len(text) + len(redact)*(SuffixLen+16))
	for i := len(segments) - 1; i >= 0; i-- {
		sb.WriteString(segments[i])
	}
	return sb.String(), working, nil
}

func (t *Tokenizer) placeholder(sessionID, label string, existing, working vault.Mapping) (string, error) {
	for range t.maxAttempts {
		suffix, err := t.gen.Suffix(sessionID)
		if err != nil {
			return "", err
		}
		ph := Placeholder(label, suffix)
		if _, taken := existing[ph]; taken {
			continue
		}
		if _, taken := working[ph]; taken {
			continue
		}
		return ph, nil
	}
	return "", ErrPlaceholderExhausted
}

func validateSpans(text string, spans []detector.Span) error {
	for i, s := range spans {
		bad := func(reason string) error {
			return &InvalidSpanError{Index: i, Type: s.Type, Start: s.Start, End: s.End, Reason: reason}
		}
		switch {
		case s.Start < 0:
			return bad("negative start offset")
		case s.End <= s.Start:
			return bad("end must be greater than start")
		case s.End > len(text):
			return bad("end beyond text length")
		case !onRuneBoundary(text, s.Start) || !onRuneBoundary(text, s.End):
			return bad("offset splits a UTF-8 sequence")
		}
	}
	return nil
}

func onRuneBoundary(text string, i int) bool {
	return i == len(text) || utf8.RuneStart(text[i])
}

func reverse(spans []detector.Span) {
	for i, j := 0, len(spans)-1; i < j; i, j = i+1, j-1 {
		spans[i], spans[j] = spans[j], spans[i]
	}
}
