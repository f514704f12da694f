package pattern

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"mercator-hq/veil/pkg/detector"
)

//go:embed recognizers.yaml
var defaultRecognizers []byte

// DefaultRecognizers returns the embedded recognizer definitions.
func DefaultRecognizers() []byte {
	return slices.Clone(defaultRecognizers)
}

const (
	defaultContextWindow = 40
	defaultContextBoost  = 0.35
)

// File is the YAML layout of a recognizer definition file.
type File struct {
	ContextWindow int          `yaml:"context_window"`
	ContextBoost  float64      `yaml:"context_boost"`
	Recognizers   []Recognizer `yaml:"recognizers"`
}

// Recognizer labels matches of its patterns with one entity type.
type Recognizer struct {
	Entity   string    `yaml:"entity"`
	Context  []string  `yaml:"context"`
	Validate string    `yaml:"validate"`
	Patterns []Pattern `yaml:"patterns"`
}

// Pattern is a single scored regular expression.
type Pattern struct {
	Name  string  `yaml:"name"`
	Regex string  `yaml:"regex"`
	Score float64 `yaml:"score"`
}

type compiledPattern struct {
	name  string
	re    *regexp.Regexp
	score float64
}

type compiledRecognizer struct {
	entity   string
	context  []string
	validate func(string) bool
	patterns []compiledPattern
}

type ruleset struct {
	window      int
	boost       float64
	recognizers []compiledRecognizer
}

// Detector finds entities with regular expressions. Its rules can be
// swapped at runtime with Load; in-flight Detect calls keep the rules they
// started with.
type Detector struct {
	rules atomic.Pointer[ruleset]
}

// New returns a Detector using the embedded recognizers.
func New() (*Detector, error) {
	d := &Detector{}
	if err := d.Load(defaultRecognizers); err != nil {
		return nil, err
	}
	return d, nil
}

// NewFromFile returns a Detector using the recognizers in path.
func NewFromFile(path string) (*Detector, error) {
	d := &Detector{}
	if err := d.LoadFile(path); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadFile reads and installs recognizers from path.
func (d *Detector) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read recognizers %q: %w", path, err)
	}
	if err := d.Load(data); err != nil {
		return fmt.Errorf("recognizers %q: %w", path, err)
	}
	return nil
}

// Load parses YAML recognizer definitions and installs them. The previous
// rules stay active if data is invalid.
func (d *Detector) Load(data []byte) error {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse recognizers: %w", err)
	}
	rs, err := compile(&f)
	if err != nil {
		return err
	}
	d.rules.Store(rs)
	return nil
}

// Entities lists the entity types the current rules can produce.
func (d *Detector) Entities() []string {
	rs := d.rules.Load()
	out := make([]string, 0, len(rs.recognizers))
	for _, r := range rs.recognizers {
		if !slices.Contains(out, r.entity) {
			out = append(out, r.entity)
		}
	}
	return out
}

func compile(f *File) (*ruleset, error) {
	if len(f.Recognizers) == 0 {
		return nil, fmt.Errorf("no recognizers defined")
	}

	rs := &ruleset{window: f.ContextWindow, boost: f.ContextBoost}
	if rs.window <= 0 {
		rs.window = defaultContextWindow
	}
	if rs.boost == 0 {
		rs.boost = defaultContextBoost
	}

	for i, r := range f.Recognizers {
		if r.Entity == "" {
			return nil, fmt.Errorf("recognizer #%d: entity is required", i)
		}
		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("recognizer %s: at least one pattern is required", r.Entity)
		}

		cr := compiledRecognizer{entity: r.Entity}
		for _, word := range r.Context {
			cr.context = append(cr.context, strings.ToLower(word))
		}
		if r.Validate != "" {
			v, ok := validators[r.Validate]
			if !ok {
				return nil, fmt.Errorf("recognizer %s: unknown validator %q", r.Entity, r.Validate)
			}
			cr.validate = v
		}

		for _, p := range r.Patterns {
			re, err := regexp.Compile(p.Regex)
			if err != nil {
				return nil, fmt.Errorf("recognizer %s pattern %s: %w", r.Entity, p.Name, err)
			}
			if p.Score < 0 || p.Score > 1 {
				return nil, fmt.Errorf("recognizer %s pattern %s: score must be within [0, 1]", r.Entity, p.Name)
			}
			cr.patterns = append(cr.patterns, compiledPattern{name: p.Name, re: re, score: p.Score})
		}
		rs.recognizers = append(rs.recognizers, cr)
	}
	return rs, nil
}

type spanKey struct {
	entity     string
	start, end int
}

// Detect implements detector.Detector. Spans with identical type and range
// are reported once with the best score; overlapping spans of different
// ranges are all reported.
func (d *Detector) Detect(ctx context.Context, text string, entities []string) ([]detector.Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rs := d.rules.Load()
	best := make(map[spanKey]float64)

	for _, r := range rs.recognizers {
		if len(entities) > 0 && !slices.Contains(entities, r.entity) {
			continue
		}
		for _, p := range r.patterns {
			for _, loc := range p.re.FindAllStringIndex(text, -1) {
				start, end := loc[0], loc[1]
				if start == end {
					continue
				}
				if r.validate != nil && !r.validate(text[start:end]) {
					continue
				}

				score := p.score
				if hasContext(text, start, rs.window, r.context) {
					score = min(1.0, score+rs.boost)
				}

				k := spanKey{entity: r.entity, start: start, end: end}
				if prev, ok := best[k]; !ok || score > prev {
					best[k] = score
				}
			}
		}
	}

	spans := make([]detector.Span, 0, len(best))
	for k, score := range best {
		spans = append(spans, detector.Span{
			Type:  k.entity,
			Start: k.start,
			End:   k.end,
			Score: score,
			Text:  text[k.start:k.end],
		})
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		if spans[i].End != spans[j].End {
			return spans[i].End < spans[j].End
		}
		return spans[i].Type < spans[j].Type
	})
	return spans, nil
}

// hasContext reports whether any context word occurs, case-insensitively,
// in the window bytes preceding start.
func hasContext(text string, start, window int, words []string) bool {
	if len(words) == 0 {
		return false
	}
	from := max(0, start-window)
	prefix := strings.ToLower(text[from:start])
	for _, w := range words {
		if strings.Contains(prefix, w) {
			return true
		}
	}
	return false
}
