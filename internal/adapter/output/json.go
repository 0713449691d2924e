package output

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/jmylchreest/clashui/internal/model"
)

// JSONFormatter formats data as indented JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// FormatSelector writes the selector summary as a JSON object.
func (f *JSONFormatter) FormatSelector(w io.Writer, s *model.SelectorSummary) error {
	return f.encode(w, s)
}

// FormatNames writes names as a JSON array.
func (f *JSONFormatter) FormatNames(w io.Writer, names []string) error {
	if names == nil {
		names = []string{}
	}
	return f.encode(w, names)
}

// FormatDelays writes delay results as a JSON array.
func (f *JSONFormatter) FormatDelays(w io.Writer, results []model.DelayResult) error {
	if results == nil {
		results = []model.DelayResult{}
	}
	return f.encode(w, results)
}

// FormatTraffic writes the traffic sample as a JSON object.
func (f *JSONFormatter) FormatTraffic(w io.Writer, t *model.Traffic) error {
	return f.encode(w, t)
}

// FormatValue writes any payload as JSON.
func (f *JSONFormatter) FormatValue(w io.Writer, v any) error {
	return f.encode(w, v)
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", strings.Repeat(" ", f.opts.indent()))
	return encoder.Encode(v)
}
