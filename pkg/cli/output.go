package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"mercator-hq/veil/pkg/detector"
)

// OutputFormat is a value of the --output flag.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatCSV  OutputFormat = "csv" // span lists only
)

// ParseOutputFormat accepts text, json or csv in any case. Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(s))
	switch f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or csv)", s)
}

// Formatter renders a command result.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// NewFormatter picks the formatter for format. Unknown formats get text.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{Headers: SpanHeaders}
	}
	return &TextFormatter{}
}

func render(f Formatter, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.FormatTo(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TextFormatter prints span lists as one aligned line per span and
// anything else with %v.
type TextFormatter struct{}

func (f *TextFormatter) Format(data any) ([]byte, error) { return render(f, data) }

func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	spans, ok := data.([]detector.Span)
	switch {
	case !ok:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	case len(spans) == 0:
		_, err := io.WriteString(w, "no entities detected\n")
		return err
	}
	for _, s := range spans {
		if _, err := fmt.Fprintf(w, "%-16s %4d-%-4d %.2f  %q\n", s.Type, s.Start, s.End, s.Score, s.Text); err != nil {
			return err
		}
	}
	return nil
}

type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) Format(data any) ([]byte, error) { return render(f, data) }

func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

// SpanHeaders is the header row CSVFormatter writes by default.
var SpanHeaders = []string{"entity_type", "start", "end", "score", "text"}

// CSVFormatter writes span lists only; other data is an error.
type CSVFormatter struct {
	Headers []string
}

func (f *CSVFormatter) Format(data any) ([]byte, error) { return render(f, data) }

func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	spans, ok := data.([]detector.Span)
	if !ok {
		return fmt.Errorf("csv output is not supported for %T", data)
	}

	cw := csv.NewWriter(w)
	if len(f.Headers) > 0 {
		_ = cw.Write(f.Headers)
	}
	for _, s := range spans {
		_ = cw.Write([]string{
			s.Type,
			strconv.Itoa(s.Start),
			strconv.Itoa(s.End),
			strconv.FormatFloat(s.Score, 'f', 2, 64),
			s.Text,
		})
	}
	cw.Flush()
	return cw.Error()
}

const (
	ansiHighlight = "\x1b[1;33m"
	ansiReset     = "\x1b[0m"
)

// ColorEnabled reports whether w is a terminal. Setting NO_COLOR turns
// colour off everywhere.
func ColorEnabled(w io.Writer) bool {
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Highlight marks each span in text, in bold yellow when color is set and
// as «TYPE:text» otherwise. spans must be sorted and disjoint. A span
// outside text or overlapping the previous one is left unmarked.
func Highlight(text string, spans []detector.Span, color bool) string {
	var sb strings.Builder
	pos := 0
	for _, s := range spans {
		if s.Start < pos || s.Start >= s.End || s.End > len(text) {
			continue
		}
		sb.WriteString(text[pos:s.Start])
		if color {
			sb.WriteString(ansiHighlight + text[s.Start:s.End] + ansiReset)
		} else {
			fmt.Fprintf(&sb, "«%s:%s»", s.Type, text[s.Start:s.End])
		}
		pos = s.End
	}
	sb.WriteString(text[pos:])
	return sb.String()
}
