package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/clashui/internal/model"
)

// YAMLFormatter formats data as YAML, the daemon's own config language.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// FormatSelector writes the selector summary as a YAML mapping.
func (f *YAMLFormatter) FormatSelector(w io.Writer, s *model.SelectorSummary) error {
	return encodeYAML(w, s, f.opts.indent())
}

// FormatNames writes names as a YAML sequence.
func (f *YAMLFormatter) FormatNames(w io.Writer, names []string) error {
	if names == nil {
		names = []string{}
	}
	return encodeYAML(w, names, f.opts.indent())
}

// FormatDelays writes delay results as a YAML sequence.
func (f *YAMLFormatter) FormatDelays(w io.Writer, results []model.DelayResult) error {
	if results == nil {
		results = []model.DelayResult{}
	}
	return encodeYAML(w, results, f.opts.indent())
}

// FormatTraffic writes the traffic sample as a YAML mapping.
func (f *YAMLFormatter) FormatTraffic(w io.Writer, t *model.Traffic) error {
	return encodeYAML(w, t, f.opts.indent())
}

// FormatValue writes any payload as YAML.
func (f *YAMLFormatter) FormatValue(w io.Writer, v any) error {
	return encodeYAML(w, v, f.opts.indent())
}

func encodeYAML(w io.Writer, v any, indent int) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(indent)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
