package tokenize

import (
	"sort"
	"strings"
)

// Detokenize replaces every placeholder from mapping found in text with its
// original value. Longer placeholders are substituted before shorter ones,
// so a placeholder that is a prefix of another cannot disturb it. A nil or
// empty mapping returns text unchanged; placeholders the mapping does not
// know about are left in place.
func Detokenize(text string, mapping map[string]string) string {
	if len(mapping) == 0 || text == "" {
		return text
	}

	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	for _, k := range keys {
		if strings.Contains(text, k) {
			text = strings.ReplaceAll(text, k, mapping[k])
		}
	}
	return text
}
