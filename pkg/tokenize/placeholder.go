package tokenize

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// SuffixLen is the number of hex characters in a placeholder suffix.
const SuffixLen = 8

// Generator produces placeholder suffixes: exactly SuffixLen lowercase hex
// characters. Implementations must be safe for concurrent use.
type Generator interface {
	Suffix(sessionID string) (string, error)
}

// RandomGenerator derives suffixes from random (v4) UUIDs.
type RandomGenerator struct{}

// Suffix returns the first eight hex characters of a fresh UUID.
func (RandomGenerator) Suffix(string) (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate placeholder suffix: %w", err)
	}
	return u.String()[:SuffixLen], nil
}

// CounterGenerator hands out suffixes from a monotonic counter shared by all
// sessions, so a suffix never repeats within a process until the counter
// wraps at 2^32.
type CounterGenerator struct {
	n atomic.Uint32
}

// NewCounterGenerator starts the counter at start.
func NewCounterGenerator(start uint32) *CounterGenerator {
	g := &CounterGenerator{}
	g.n.Store(start)
	return g
}

// Suffix returns the next counter value as eight hex digits.
func (g *CounterGenerator) Suffix(string) (string, error) {
	return fmt.Sprintf("%08x", g.n.Add(1)), nil
}

// NewGenerator returns the generator registered under name: "random" (or
// empty) or "counter".
func NewGenerator(name string) (Generator, error) {
	switch name {
	case "", "random":
		return RandomGenerator{}, nil
	case "counter":
		return NewCounterGenerator(0), nil
	default:
		return nil, fmt.Errorf("unknown placeholder generator %q", name)
	}
}

// Placeholder formats the token "[LABEL_suffix]".
func Placeholder(label, suffix string) string {
	return "[" + NormalizeLabel(label) + "_" + suffix + "]"
}

// NormalizeLabel upper-cases label and replaces anything outside
// [A-Z0-9_] with an underscore. An empty label becomes "PII".
func NormalizeLabel(label string) string {
	if label == "" {
		return "PII"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		default:
			return '_'
		}
	}, label)
}
