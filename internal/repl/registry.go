// Package repl provides the interactive command loop.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Unbounded marks a command that accepts any number of trailing arguments.
const Unbounded = -1

// Handler runs a command with its already-validated arguments.
type Handler func(ctx context.Context, args []string) error

// Command is one registered command word.
type Command struct {
	Name    string
	Usage   string // e.g. "select <selector> <index>"
	Help    string // one-line description
	MinArgs int
	MaxArgs int // Unbounded for no limit
	Run     Handler
}

// Errors returned by dispatch.
var (
	ErrQuit              = errors.New("quit")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrUnknownSubcommand = errors.New("unknown sub-command")
)

// UsageError reports arguments that do not fit a command's declared shape.
type UsageError struct {
	Command *Command
	Got     int
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("wrong number of arguments (%d), usage: %s", e.Got, e.Command.Usage)
}

// Registry maps command words to commands, keeping registration order.
type Registry struct {
	order    []string
	commands map[string]*Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds a command. Registering a name twice replaces the command but
// keeps its original position.
func (r *Registry) Register(cmd Command) {
	if cmd.Usage == "" {
		cmd.Usage = cmd.Name
	}
	if _, exists := r.commands[cmd.Name]; !exists {
		r.order = append(r.order, cmd.Name)
	}
	r.commands[cmd.Name] = &cmd
}

// Lookup returns the command registered under name.
func (r *Registry) Lookup(name string) (*Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Names returns the command words in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Commands returns the commands in registration order.
func (r *Registry) Commands() []*Command {
	cmds := make([]*Command, 0, len(r.order))
	for _, name := range r.order {
		cmds = append(cmds, r.commands[name])
	}
	return cmds
}

// Dispatch validates args against the command's shape and runs it.
func (r *Registry) Dispatch(ctx context.Context, name string, args []string) error {
	cmd, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
	if len(args) < cmd.MinArgs || (cmd.MaxArgs != Unbounded && len(args) > cmd.MaxArgs) {
		return &UsageError{Command: cmd, Got: len(args)}
	}
	return cmd.Run(ctx, args)
}

// Group returns a handler that dispatches its first argument to sub. With no
// argument or an unknown one it writes the valid sub-command names to w and
// fails with ErrUnknownSubcommand.
func Group(sub *Registry, w io.Writer) Handler {
	return func(ctx context.Context, args []string) error {
		if len(args) > 0 {
			if _, ok := sub.Lookup(args[0]); ok {
				return sub.Dispatch(ctx, args[0], args[1:])
			}
		}
		fmt.Fprintf(w, "Args: [%s]\n", strings.Join(sub.Names(), ", "))
		if len(args) == 0 {
			return fmt.Errorf("%w: none given", ErrUnknownSubcommand)
		}
		return fmt.Errorf("%w %q", ErrUnknownSubcommand, args[0])
	}
}

// WriteHelp lists the commands with their usage and help text.
func (r *Registry) WriteHelp(w io.Writer) {
	fmt.Fprintln(w, "Available commands:")
	fmt.Fprintf(w, "[%s]\n\n", strings.Join(r.Names(), ", "))

	width := 0
	for _, cmd := range r.Commands() {
		width = max(width, len(cmd.Usage))
	}
	for _, cmd := range r.Commands() {
		fmt.Fprintf(w, "  %-*s  %s\n", width, cmd.Usage, cmd.Help)
	}
}
