// Package output provides output formatters for controller data.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/clashui/internal/model"
)

// Formatter renders controller data.
type Formatter interface {
	// FormatSelector writes one selector with its alive members.
	FormatSelector(w io.Writer, s *model.SelectorSummary) error

	// FormatNames writes a list of names.
	FormatNames(w io.Writer, names []string) error

	// FormatDelays writes delay test results.
	FormatDelays(w io.Writer, results []model.DelayResult) error

	// FormatTraffic writes a traffic sample.
	FormatTraffic(w io.Writer, t *model.Traffic) error

	// FormatValue writes an opaque payload (config, rules, version, ...).
	FormatValue(w io.Writer, v any) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
)

// FormatTypes lists the supported formats.
var FormatTypes = []FormatType{FormatPlain, FormatJSON, FormatYAML}

// ParseFormatType parses a format name, case-insensitively.
func ParseFormatType(s string) (FormatType, error) {
	switch FormatType(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPlain, "":
		return FormatPlain, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		valid := make([]string, len(FormatTypes))
		for i, t := range FormatTypes {
			valid[i] = string(t)
		}
		return "", fmt.Errorf("unknown output format %q (valid: %s)", s, strings.Join(valid, ", "))
	}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Color  bool // Style headers and labels (plain format only)
	Indent int  // Indentation for json/yaml (0 = 2)
}

// DefaultFormatterOptions returns sensible defaults for terminal output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		Color:  true,
		Indent: 2,
	}
}

func (o FormatterOptions) indent() int {
	if o.Indent <= 0 {
		return 2
	}
	return o.Indent
}
