package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chzyer/readline"
)

// LineReader yields one line of input per call. It returns io.EOF when input
// ends and readline.ErrInterrupt when the user pressed Ctrl-C.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// Dispatcher runs the read-dispatch loop over a Registry.
type Dispatcher struct {
	registry *Registry
	out      io.Writer
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher writing failure notices to out.
func NewDispatcher(registry *Registry, out io.Writer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, out: out, logger: logger}
}

// Dispatch runs one input line. Blank lines are a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return d.registry.Dispatch(ctx, fields[0], fields[1:])
}

// Run reads and dispatches lines until the quit command, end of input, or a
// read error. A failing command prints a one-line notice and the loop continues.
func (d *Dispatcher) Run(ctx context.Context, r LineReader) error {
	for {
		line, err := r.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		err = d.Dispatch(ctx, line)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrQuit) {
			return nil
		}
		raw := strings.TrimSpace(line)
		d.logger.Debug("command failed", "input", raw, "error", err)
		fmt.Fprintf(d.out, "x %s failed: %s\n", raw, strings.Join(strings.Fields(err.Error()), " "))
	}
}

// ScannerReader is a LineReader over any io.Reader, for piped input and tests.
type ScannerReader struct {
	scanner *bufio.Scanner
	prompt  string
	out     io.Writer
}

// NewScannerReader reads lines from r, writing prompt to out before each one.
// A nil out writes no prompt.
func NewScannerReader(r io.Reader, prompt string, out io.Writer) *ScannerReader {
	return &ScannerReader{scanner: bufio.NewScanner(r), prompt: prompt, out: out}
}

// Readline returns the next line without its newline.
func (s *ScannerReader) Readline() (string, error) {
	if s.out != nil {
		fmt.Fprint(s.out, s.prompt)
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

// Close is a no-op.
func (s *ScannerReader) Close() error {
	return nil
}

// NewReadline creates an interactive line editor with the given prompt.
// An empty historyFile disables history.
func NewReadline(prompt, historyFile string, names []string) (*readline.Instance, error) {
	items := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, name := range names {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "q",
		AutoComplete:    readline.NewPrefixCompleter(items...),
	})
}
