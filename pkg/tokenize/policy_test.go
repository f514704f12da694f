package tokenize

import (
	"regexp"
	"testing"

	"mercator-hq/veil/pkg/detector"
)

func TestPolicy_ParseAge(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		text   string
		want   int
		wantOK bool
	}{
		{text: "age 45", want: 45, wantOK: true},
		{text: "89-year-old", want: 89, wantOK: true},
		{text: "(age: 102)", want: 102, wantOK: true},
		{text: "aged 120", want: 120, wantOK: true},
		{text: "aged 121", wantOK: false},
		{text: "age 7", wantOK: false},
		{text: "age unknown", wantOK: false},
		{text: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := p.ParseAge(tt.text)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("ParseAge(%q) = %d, %v; want %d, %v", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPolicy_ShouldRedact(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		label, text string
		want        bool
	}{
		{label: detector.EntityAge, text: "age 89", want: false},
		{label: detector.EntityAge, text: "age 90", want: true},
		{label: detector.EntityAge, text: "old", want: true},
		{label: detector.EntitySSN, text: "age 30", want: true},
		{label: detector.EntityPerson, text: "Ana", want: true},
	}

	for _, tt := range tests {
		if got := p.ShouldRedact(tt.label, tt.text); got != tt.want {
			t.Errorf("ShouldRedact(%s, %q) = %v, want %v", tt.label, tt.text, got, tt.want)
		}
	}
}

func TestPolicy_CustomThreshold(t *testing.T) {
	p := Policy{AgeLabels: []string{"PATIENT_AGE"}, AgeThreshold: 64}.withDefaults()
	if !p.ShouldRedact("PATIENT_AGE", "70") {
		t.Error("70 should be redacted with threshold 64")
	}
	if p.ShouldRedact("PATIENT_AGE", "64") {
		t.Error("64 should be kept with threshold 64")
	}
	if !p.ShouldRedact(detector.EntityAge, "30") {
		t.Error("AGE is not an age label in this policy and must be redacted")
	}
}

func TestRandomGenerator_Format(t *testing.T) {
	hex := regexp.MustCompile(`^[0-9a-f]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := RandomGenerator{}.Suffix("s")
		if err != nil {
			t.Fatal(err)
		}
		if !hex.MatchString(s) {
			t.Fatalf("suffix %q is not 8 hex chars", s)
		}
		seen[s] = true
	}
	if len(seen) < 95 {
		t.Errorf("only %d distinct suffixes out of 100", len(seen))
	}
}

func TestNewGenerator(t *testing.T) {
	for _, name := range []string{"", "random", "counter"} {
		if _, err := NewGenerator(name); err != nil {
			t.Errorf("NewGenerator(%q) error = %v", name, err)
		}
	}
	if _, err := NewGenerator("sequential"); err == nil {
		t.Error("NewGenerator(sequential) should fail")
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := map[string]string{
		"US_SSN":       "US_SSN",
		"phone-number": "PHONE_NUMBER",
		"":             "PII",
		"ip address":   "IP_ADDRESS",
		"ÄGE":          "_GE",
	}
	for in, want := range tests {
		if got := NormalizeLabel(in); got != want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Placeholder("url", "0000abcd"); got != "[URL_0000abcd]" {
		t.Errorf("Placeholder() = %q", got)
	}
}
