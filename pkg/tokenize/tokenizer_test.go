package tokenize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/veil/pkg/detector"
	"mercator-hq/veil/pkg/vault"
)

var placeholderRe = regexp.MustCompile(`\[[A-Z0-9_]+_[0-9a-f]{8}\]`)

func newTestTokenizer() (*Tokenizer, *vault.Vault) {
	v := vault.New(vault.Config{TTL: time.Hour, Clock: vault.NewFakeClock(time.Unix(0, 0))})
	return New(v, Options{}), v
}

// spanOf builds a span covering the first occurrence of sub in text.
func spanOf(t *testing.T, text, sub, label string, score float64) detector.Span {
	t.Helper()
	i := strings.Index(text, sub)
	if i < 0 {
		t.Fatalf("%q not found in %q", sub, text)
	}
	return detector.Span{Type: label, Start: i, End: i + len(sub), Score: score, Text: sub}
}

func TestTokenize_Scenario(t *testing.T) {
	tok, v := newTestTokenizer()
	text := "Call 555-123-4567, SSN 123-45-6789, age 95"
	spans := []detector.Span{
		spanOf(t, text, "555-123-4567", detector.EntityPhoneNumber, 0.75),
		spanOf(t, text, "123-45-6789", detector.EntitySSN, 0.85),
		spanOf(t, text, "age 95", detector.EntityAge, 0.7),
	}

	res, err := tok.Tokenize(text, "s1", spans)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}

	found := placeholderRe.FindAllString(res.SanitizedText, -1)
	if len(found) != 3 {
		t.Fatalf("found %d placeholders in %q, want 3", len(found), res.SanitizedText)
	}
	seen := map[string]bool{}
	for _, p := range found {
		if seen[p] {
			t.Errorf("placeholder %s repeated", p)
		}
		seen[p] = true
	}
	stripped := placeholderRe.ReplaceAllString(res.SanitizedText, "")
	for _, leaked := range []string{"555-123-4567", "123-45-6789", "95"} {
		if strings.Contains(stripped, leaked) {
			t.Errorf("sanitized text %q still contains %q", res.SanitizedText, leaked)
		}
	}

	// Echo the sanitized text back as a completion and restore it.
	mapping, ok := v.Get("s1")
	if !ok {
		t.Fatal("session missing from vault")
	}
	if got := Detokenize(res.SanitizedText, mapping); got != text {
		t.Errorf("Detokenize() = %q, want %q", got, text)
	}
}

func TestTokenize_AgePolicy(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantRedact bool
	}{
		{name: "age 89 kept", text: "patient age 89", wantRedact: false},
		{name: "age 90 redacted", text: "patient age 90", wantRedact: true},
		{name: "age 45 kept", text: "patient age 45", wantRedact: false},
		{name: "age 121 out of range", text: "patient age 121", wantRedact: true},
		{name: "unparseable age", text: "patient age ninety", wantRedact: true},
		{name: "single digit unparseable", text: "patient age 7", wantRedact: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, v := newTestTokenizer()
			span := spanOf(t, tt.text, strings.TrimPrefix(tt.text, "patient "), detector.EntityAge, 0.7)

			res, err := tok.Tokenize(tt.text, "s1", []detector.Span{span})
			if err != nil {
				t.Fatalf("Tokenize() error = %v", err)
			}

			redacted := res.SanitizedText != tt.text
			if redacted != tt.wantRedact {
				t.Errorf("redacted = %v, want %v (sanitized %q)", redacted, tt.wantRedact, res.SanitizedText)
			}
			if tt.wantRedact {
				if len(res.Accepted) != 1 {
					t.Errorf("Accepted = %d, want 1", len(res.Accepted))
				}
			} else {
				if len(res.Kept) != 1 {
					t.Errorf("Kept = %d, want 1", len(res.Kept))
				}
				if v.Len() != 0 {
					t.Error("kept-only call mutated the vault")
				}
			}
		})
	}
}

func TestTokenize_NoSpans(t *testing.T) {
	tok, v := newTestTokenizer()

	res, err := tok.Tokenize("nothing to see", "s1", nil)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	if res.SanitizedText != "nothing to see" {
		t.Errorf("SanitizedText = %q", res.SanitizedText)
	}
	if v.Len() != 0 {
		t.Error("empty span list created a session")
	}
	if res.Mapping != nil {
		t.Errorf("Mapping = %v, want nil", res.Mapping)
	}
}

func TestTokenize_NoSpansReturnsExistingMapping(t *testing.T) {
	tok, v := newTestTokenizer()
	v.Set("s1", vault.Mapping{"[A_00000001]": "x"})

	res, err := tok.Tokenize("plain", "s1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Mapping) != 1 {
		t.Errorf("Mapping len = %d, want 1", len(res.Mapping))
	}
}

func TestTokenize_InvalidSpans(t *testing.T) {
	text := "héllo world"
	tests := []struct {
		name string
		span detector.Span
	}{
		{name: "negative start", span: detector.Span{Type: "X", Start: -1, End: 2}},
		{name: "empty span", span: detector.Span{Type: "X", Start: 3, End: 3}},
		{name: "inverted", span: detector.Span{Type: "X", Start: 4, End: 2}},
		{name: "past end", span: detector.Span{Type: "X", Start: 0, End: len(text) + 1}},
		{name: "splits rune", span: detector.Span{Type: "X", Start: 2, End: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, v := newTestTokenizer()
			_, err := tok.Tokenize(text, "s1", []detector.Span{tt.span})

			var spanErr *InvalidSpanError
			if !errors.As(err, &spanErr) {
				t.Fatalf("error = %v, want *InvalidSpanError", err)
			}
			if strings.Contains(err.Error(), "llo") {
				t.Errorf("error message leaks text: %v", err)
			}
			if v.Len() != 0 {
				t.Error("invalid span mutated the vault")
			}
		})
	}
}

func TestTokenize_UsesTextNotDetectorText(t *testing.T) {
	tok, _ := newTestTokenizer()
	text := "ssn 123-45-6789"
	span := spanOf(t, text, "123-45-6789", detector.EntitySSN, 0.9)
	span.Text = "something else"

	res, err := tok.Tokenize(text, "s1", []detector.Span{span})
	if err != nil {
		t.Fatal(err)
	}
	if res.Accepted[0].Text != "123-45-6789" {
		t.Errorf("Accepted text = %q", res.Accepted[0].Text)
	}
	if got := Detokenize(res.SanitizedText, res.Mapping); got != text {
		t.Errorf("round trip = %q", got)
	}
}

func TestTokenize_FreshPlaceholdersPerOccurrence(t *testing.T) {
	tok, _ := newTestTokenizer()
	text := "a@example.com wrote to a@example.com"
	first := detector.Span{Type: detector.EntityEmailAddress, Start: 0, End: 13, Score: 1}
	second := detector.Span{Type: detector.EntityEmailAddress, Start: 23, End: 36, Score: 1}

	res, err := tok.Tokenize(text, "s1", []detector.Span{first, second})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Placeholders) != 2 {
		t.Errorf("placeholders = %d, want 2 distinct", len(res.Placeholders))
	}

	again, err := tok.Tokenize(text, "s1", []detector.Span{first, second})
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Mapping) != 4 {
		t.Errorf("session mapping = %d, want 4", len(again.Mapping))
	}
}

func TestTokenize_MergeAccumulation(t *testing.T) {
	tok, v := newTestTokenizer()

	t1 := "email bob@example.com"
	r1, err := tok.Tokenize(t1, "s1", []detector.Span{spanOf(t, t1, "bob@example.com", detector.EntityEmailAddress, 1)})
	if err != nil {
		t.Fatal(err)
	}

	t2 := "call 555-987-6543"
	r2, err := tok.Tokenize(t2, "s1", []detector.Span{spanOf(t, t2, "555-987-6543", detector.EntityPhoneNumber, 1)})
	if err != nil {
		t.Fatal(err)
	}

	m, _ := v.Get("s1")
	if len(m) != 2 {
		t.Fatalf("vault mapping = %d entries, want 2", len(m))
	}
	for ph := range r1.Placeholders {
		if _, ok := m[ph]; !ok {
			t.Errorf("first call placeholder %s missing", ph)
		}
	}
	for ph := range r2.Placeholders {
		if _, ok := m[ph]; !ok {
			t.Errorf("second call placeholder %s missing", ph)
		}
	}
	if len(r2.Mapping) != 2 {
		t.Errorf("returned merged mapping = %d, want 2", len(r2.Mapping))
	}
}

func TestTokenize_Concurrent(t *testing.T) {
	tok, v := newTestTokenizer()

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			text := fmt.Sprintf("id %09d and %09d", w, w+1000)
			spans := []detector.Span{
				{Type: detector.EntitySSN, Start: 3, End: 12, Score: 0.7},
				{Type: detector.EntitySSN, Start: 17, End: 26, Score: 0.7},
			}
			if _, err := tok.Tokenize(text, "shared", spans); err != nil {
				errs <- err
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Tokenize() error = %v", err)
	}

	m, _ := v.Get("shared")
	if len(m) != workers*2 {
		t.Errorf("mapping = %d entries, want %d", len(m), workers*2)
	}
}

// collidingGenerator returns the queued suffixes in order.
type collidingGenerator struct {
	mu       sync.Mutex
	suffixes []string
}

func (g *collidingGenerator) Suffix(string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.suffixes[0]
	if len(g.suffixes) > 1 {
		g.suffixes = g.suffixes[1:]
	}
	return s, nil
}

func TestTokenize_CollisionRegenerates(t *testing.T) {
	v := vault.New(vault.Config{TTL: time.Hour})
	v.Set("s1", vault.Mapping{"[US_SSN_aaaaaaaa]": "000-00-0000"})

	gen := &collidingGenerator{suffixes: []string{"aaaaaaaa", "aaaaaaaa", "bbbbbbbb"}}
	tok := New(v, Options{Generator: gen})

	res, err := tok.Tokenize("ssn 123-45-6789", "s1", []detector.Span{{Type: detector.EntitySSN, Start: 4, End: 15, Score: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if res.SanitizedText != "ssn [US_SSN_bbbbbbbb]" {
		t.Errorf("SanitizedText = %q", res.SanitizedText)
	}
	m, _ := v.Get("s1")
	if m["[US_SSN_aaaaaaaa]"] != "000-00-0000" {
		t.Error("existing mapping entry overwritten by collision")
	}
}

// racingStore lets another writer claim a placeholder between the
// tokenizer's snapshot and its merge.
type racingStore struct {
	*vault.Vault
	once  sync.Once
	claim vault.Mapping
}

func (s *racingStore) MergeNew(sessionID string, m vault.Mapping) (vault.Mapping, []string) {
	s.once.Do(func() { s.Vault.Merge(sessionID, s.claim) })
	return s.Vault.MergeNew(sessionID, m)
}

func TestTokenize_ConcurrentClaimRegenerates(t *testing.T) {
	v := vault.New(vault.Config{TTL: time.Hour})
	store := &racingStore{Vault: v, claim: vault.Mapping{"[US_SSN_aaaaaaaa]": "000-00-0000"}}
	gen := &collidingGenerator{suffixes: []string{"aaaaaaaa", "bbbbbbbb"}}
	tok := New(store, Options{Generator: gen})

	res, err := tok.Tokenize("ssn 123-45-6789", "s1", []detector.Span{{Type: detector.EntitySSN, Start: 4, End: 15, Score: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if res.SanitizedText != "ssn [US_SSN_bbbbbbbb]" {
		t.Errorf("SanitizedText = %q, want the regenerated placeholder", res.SanitizedText)
	}
	m, _ := v.Get("s1")
	if m["[US_SSN_aaaaaaaa]"] != "000-00-0000" || m["[US_SSN_bbbbbbbb]"] != "123-45-6789" {
		t.Errorf("session mapping = %v, want both writers' entries", m)
	}
	if len(res.Mapping) != 2 {
		t.Errorf("Result.Mapping has %d entries, want 2", len(res.Mapping))
	}
}

func TestTokenize_ZeroAgeThresholdRedactsAllAges(t *testing.T) {
	v := vault.New(vault.Config{TTL: time.Hour})
	tok := New(v, Options{Policy: &Policy{AgeThreshold: 0}})

	text := "age 45"
	res, err := tok.Tokenize(text, "s1", []detector.Span{{Type: detector.EntityAge, Start: 0, End: len(text), Score: 0.85}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Accepted) != 1 || len(res.Kept) != 0 {
		t.Fatalf("accepted %d, kept %d; want the age redacted", len(res.Accepted), len(res.Kept))
	}
	if !placeholderRe.MatchString(res.SanitizedText) {
		t.Errorf("SanitizedText = %q, want a placeholder", res.SanitizedText)
	}
}

func TestTokenize_CollisionExhausted(t *testing.T) {
	v := vault.New(vault.Config{TTL: time.Hour})
	v.Set("s1", vault.Mapping{"[US_SSN_aaaaaaaa]": "000-00-0000"})

	tok := New(v, Options{Generator: &collidingGenerator{suffixes: []string{"aaaaaaaa"}}, MaxAttempts: 3})
	_, err := tok.Tokenize("ssn 123-45-6789", "s1", []detector.Span{{Type: detector.EntitySSN, Start: 4, End: 15, Score: 1}})
	if !errors.Is(err, ErrPlaceholderExhausted) {
		t.Errorf("error = %v, want ErrPlaceholderExhausted", err)
	}
}

func TestTokenize_OverlapsResolved(t *testing.T) {
	tok, _ := newTestTokenizer()
	text := "MRN: AB-1234567 noted"
	mrn := detector.Span{Type: detector.EntityMedicalRecord, Start: 0, End: 15, Score: 0.85}
	inner := detector.Span{Type: detector.EntitySSN, Start: 8, End: 15, Score: 0.4}

	res, err := tok.Tokenize(text, "s1", []detector.Span{inner, mrn})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Accepted) != 1 || res.Accepted[0].Type != detector.EntityMedicalRecord {
		t.Fatalf("Accepted = %+v, want the MRN span only", res.Accepted)
	}
	if got := Detokenize(res.SanitizedText, res.Mapping); got != text {
		t.Errorf("round trip = %q, want %q", got, text)
	}
}

func TestTokenize_CounterGenerator(t *testing.T) {
	v := vault.New(vault.Config{TTL: time.Hour})
	tok := New(v, Options{Generator: NewCounterGenerator(0)})

	text := "a 123-45-6789 b 987-65-4321"
	res, err := tok.Tokenize(text, "s1", []detector.Span{
		{Type: "us_ssn", Start: 2, End: 13, Score: 1},
		{Type: "us_ssn", Start: 16, End: 27, Score: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	// Spans are spliced last-first, so the later span draws the first counter value.
	want := "a [US_SSN_00000002] b [US_SSN_00000001]"
	if res.SanitizedText != want {
		t.Errorf("SanitizedText = %q, want %q", res.SanitizedText, want)
	}
}
