package detector

import (
	"context"
	"fmt"
)

// Chain runs detectors in order and concatenates their spans. Overlapping
// results from different detectors are returned as-is; the tokenizer
// resolves them. The first detector error aborts the chain.
type Chain struct {
	detectors []Detector
	names     []string
}

// NewChain builds a chain. names labels each detector in error messages and
// may be shorter than detectors.
func NewChain(detectors []Detector, names ...string) *Chain {
	return &Chain{detectors: detectors, names: names}
}

// Detect implements Detector.
func (c *Chain) Detect(ctx context.Context, text string, entities []string) ([]Span, error) {
	var all []Span
	for i, d := range c.detectors {
		spans, err := d.Detect(ctx, text, entities)
		if err != nil {
			return nil, fmt.Errorf("detector %s: %w", c.name(i), err)
		}
		all = append(all, spans...)
	}
	return all, nil
}

func (c *Chain) name(i int) string {
	if i < len(c.names) && c.names[i] != "" {
		return c.names[i]
	}
	return fmt.Sprintf("#%d", i)
}
