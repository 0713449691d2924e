package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/clashui/internal/model"
)

const ruleWidth = 64

// PlainFormatter formats data as human-readable text.
type PlainFormatter struct {
	opts FormatterOptions
	now  func() time.Time
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	return &PlainFormatter{opts: opts, now: time.Now}
}

// styles holds the lipgloss styles bound to one writer.
type styles struct {
	color  bool
	header lipgloss.Style
	label  lipgloss.Style
	good   lipgloss.Style
	bad    lipgloss.Style
	muted  lipgloss.Style
}

func (f *PlainFormatter) styles(w io.Writer) styles {
	if !f.opts.Color {
		return styles{}
	}
	r := lipgloss.NewRenderer(w)
	return styles{
		color:  true,
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:  r.NewStyle().Foreground(lipgloss.Color("8")),
		good:   r.NewStyle().Foreground(lipgloss.Color("10")),
		bad:    r.NewStyle().Foreground(lipgloss.Color("9")),
		muted:  r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (s styles) paint(style lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return style.Render(text)
}

func (s styles) alive(alive bool) string {
	if alive {
		return s.paint(s.good, "true")
	}
	return s.paint(s.bad, "false")
}

// FormatSelector writes a selector block:
//
//	--------------------------- SELECTOR ---------------------------
//	Selector: GLOBAL
//	 - aliveness: true
//	 - selected_proxy: Tokyo
//	 - snapshot: 10 seconds ago
//	Proxies:
//	0 : Proxy: Tokyo (alive: true)
//	 - delay: 80, mean_delay: 75 (checked 2 minutes ago)
//	----------------------------------------------------------------
func (f *PlainFormatter) FormatSelector(w io.Writer, s *model.SelectorSummary) error {
	st := f.styles(w)
	side := strings.Repeat("-", (ruleWidth-len(" SELECTOR "))/2)

	var sb strings.Builder
	sb.WriteString(st.paint(st.header, side+" SELECTOR "+side) + "\n")
	fmt.Fprintf(&sb, "%s %s\n", st.paint(st.label, "Selector:"), s.Name)
	fmt.Fprintf(&sb, " - aliveness: %s\n", st.alive(s.Alive))
	fmt.Fprintf(&sb, " - selected_proxy: %s\n", s.Now)
	if !s.FetchedAt.IsZero() {
		fmt.Fprintf(&sb, " - snapshot: %s\n", st.paint(st.muted, f.age(s.FetchedAt)))
	}
	sb.WriteString(st.paint(st.label, "Proxies:") + "\n")

	for _, m := range s.Members {
		fmt.Fprintf(&sb, "%d : Proxy: %s (alive: %s)\n", m.Index, m.Name, st.alive(m.Alive))
		if m.Delay != nil && m.MeanDelay != nil {
			fmt.Fprintf(&sb, " - delay: %d, mean_delay: %d", *m.Delay, *m.MeanDelay)
			if !m.CheckedAt.IsZero() {
				sb.WriteString(" " + st.paint(st.muted, "(checked "+f.age(m.CheckedAt)+")"))
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString(st.paint(st.header, strings.Repeat("-", ruleWidth)) + "\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func (f *PlainFormatter) age(t time.Time) string {
	return humanize.RelTime(t, f.now(), "ago", "from now")
}

// FormatNames writes one name per line.
func (f *PlainFormatter) FormatNames(w io.Writer, names []string) error {
	for _, name := range names {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}

// FormatDelays writes one aligned line per delay test.
func (f *PlainFormatter) FormatDelays(w io.Writer, results []model.DelayResult) error {
	st := f.styles(w)

	width := 0
	for _, r := range results {
		width = max(width, len(r.Name))
	}

	for _, r := range results {
		var line string
		switch {
		case r.Error != "":
			line = st.paint(st.bad, "error: "+r.Error)
		case r.Delay != nil && r.Delay.MeanDelay > 0:
			line = fmt.Sprintf("%d ms (mean %d ms)", r.Delay.Delay, r.Delay.MeanDelay)
		case r.Delay != nil:
			line = fmt.Sprintf("%d ms", r.Delay.Delay)
		default:
			line = st.paint(st.muted, "no result")
		}
		if _, err := fmt.Fprintf(w, "%-*s  %s\n", width, r.Name, line); err != nil {
			return err
		}
	}
	return nil
}

// FormatTraffic writes the sample as rates.
func (f *PlainFormatter) FormatTraffic(w io.Writer, t *model.Traffic) error {
	st := f.styles(w)
	_, err := fmt.Fprintf(w, "%s %s/s  %s %s/s\n",
		st.paint(st.label, "up:"), humanize.Bytes(nonNegative(t.Up)),
		st.paint(st.label, "down:"), humanize.Bytes(nonNegative(t.Down)))
	return err
}

// FormatValue writes strings and versions as-is and anything else as YAML.
func (f *PlainFormatter) FormatValue(w io.Writer, v any) error {
	if v == nil {
		_, err := fmt.Fprintln(w, "(empty)")
		return err
	}
	if s, ok := v.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	if ver, ok := v.(*model.Version); ok {
		_, err := fmt.Fprintln(w, ver.Version)
		return err
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(f.opts.indent())
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

func nonNegative(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}
