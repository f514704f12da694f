package tokenize

import (
	"sort"

	"mercator-hq/veil/pkg/detector"
)

// ResolveOverlaps returns a subset of spans in which no two spans share a
// byte. Spans are ranked by score (higher first), then length (longer
// first), then start offset (earlier first), then input position, and
// accepted greedily; any span intersecting an already accepted one is
// dropped. The result is ordered by descending start offset.
func ResolveOverlaps(spans []detector.Span) []detector.Span {
	if len(spans) < 2 {
		return append([]detector.Span(nil), spans...)
	}

	order := make([]int, len(spans))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := spans[order[a]], spans[order[b]]
		if sa.Score != sb.Score {
			return sa.Score > sb.Score
		}
		if sa.Len() != sb.Len() {
			return sa.Len() > sb.Len()
		}
		if sa.Start != sb.Start {
			return sa.Start < sb.Start
		}
		return order[a] < order[b]
	})

	accepted := make([]detector.Span, 0, len(spans))
	for _, idx := range order {
		candidate := spans[idx]
		clash := false
		for _, kept := range accepted {
			if candidate.Overlaps(kept) {
				clash = true
				break
			}
		}
		if !clash {
			accepted = append(accepted, candidate)
		}
	}

	sortDescending(accepted)
	return accepted
}

// sortDescending orders spans by start offset, last first.
func sortDescending(spans []detector.Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start > spans[j].Start
	})
}
