package tokenize

import (
	"errors"
	"fmt"
)

// ErrPlaceholderExhausted is returned when the generator keeps producing
// placeholders that already exist in the session.
var ErrPlaceholderExhausted = errors.New("could not generate a unique placeholder")

// InvalidSpanError reports a detected span whose offsets do not fit the
// text. It carries offsets and the label only, never the text itself.
type InvalidSpanError struct {
	Index  int
	Type   string
	Start  int
	End    int
	Reason string
}

// Error returns a description safe to log.
func (e *InvalidSpanError) Error() string {
	return fmt.Sprintf("invalid span #%d (%s [%d:%d]): %s", e.Index, e.Type, e.Start, e.End, e.Reason)
}
