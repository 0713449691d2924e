// Package session holds the client's view of the daemon's proxies.
//
// A Session owns the last fetched snapshot and the selectors derived from
// it. It is used from a single goroutine and does no locking.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmylchreest/clashui/internal/adapter/output"
	"github.com/jmylchreest/clashui/internal/model"
)

// Session errors.
var (
	ErrNoSnapshot       = errors.New("no proxy snapshot loaded")
	ErrSelectorNotFound = errors.New("selector not found")
	ErrIndexOutOfRange  = errors.New("proxy index out of range")
)

// Gateway is the subset of the controller client the session needs.
type Gateway interface {
	Proxies(ctx context.Context) (*model.Snapshot, error)
	SelectProxy(ctx context.Context, selector, proxy string) error
}

// selectorView caches the selectors of one snapshot generation.
type selectorView struct {
	generation uint64
	selectors  []*model.ProxyRecord
}

// Session is the in-memory proxy model.
type Session struct {
	gateway   Gateway
	formatter output.Formatter
	logger    *slog.Logger

	snapshot   *model.Snapshot
	generation uint64 // 0 until the first successful refresh
	view       selectorView
}

// New creates a session with no snapshot loaded.
// A nil formatter selects the plain formatter; a nil logger uses slog.Default().
func New(gateway Gateway, formatter output.Formatter, logger *slog.Logger) *Session {
	if formatter == nil {
		formatter = output.NewPlainFormatter(output.DefaultFormatterOptions())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		gateway:   gateway,
		formatter: formatter,
		logger:    logger,
	}
}

// Refresh fetches a new snapshot and replaces the current one.
// On failure the current snapshot and selectors are left as they were.
func (s *Session) Refresh(ctx context.Context) error {
	snapshot, err := s.gateway.Proxies(ctx)
	if err != nil {
		s.logger.Warn("failed to refresh proxies", "error", err)
		return fmt.Errorf("refresh proxies: %w", err)
	}

	for _, r := range snapshot.Records() {
		if !model.IsKnownType(r.Type) {
			s.logger.Warn("unrecognized proxy type", "proxy", r.Name, "type", r.Type)
		}
	}

	s.snapshot = snapshot
	s.generation++
	s.logger.Debug("proxy snapshot replaced",
		"id", snapshot.ID.String(),
		"generation", s.generation,
		"proxies", snapshot.Len())
	return nil
}

// Snapshot returns the current snapshot, or nil before the first refresh.
func (s *Session) Snapshot() *model.Snapshot {
	return s.snapshot
}

// Generation returns the number of successful refreshes.
func (s *Session) Generation() uint64 {
	return s.generation
}

// Selectors returns the Selector records of the current snapshot in snapshot
// order. The slice is cached until the next successful refresh; callers must
// not modify it.
func (s *Session) Selectors() []*model.ProxyRecord {
	if s.snapshot == nil {
		return nil
	}
	if s.view.generation != s.generation {
		s.view = selectorView{
			generation: s.generation,
			selectors:  filterSelectors(s.snapshot),
		}
	}
	return s.view.selectors
}

func filterSelectors(snapshot *model.Snapshot) []*model.ProxyRecord {
	var selectors []*model.ProxyRecord
	for _, r := range snapshot.Records() {
		if r.IsSelector() {
			selectors = append(selectors, r)
		}
	}
	return selectors
}

// Selector finds a selector by name.
func (s *Session) Selector(name string) (*model.ProxyRecord, error) {
	if s.snapshot == nil {
		return nil, ErrNoSnapshot
	}
	for _, sel := range s.Selectors() {
		if sel.Name == name {
			return sel, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSelectorNotFound, name)
}

// Summary builds the printable view of a selector. Members that are missing
// from the snapshot or not alive are left out.
func (s *Session) Summary(name string) (*model.SelectorSummary, error) {
	sel, err := s.Selector(name)
	if err != nil {
		return nil, err
	}

	summary := &model.SelectorSummary{
		Name:      sel.Name,
		Alive:     sel.Alive,
		Now:       sel.Now,
		FetchedAt: s.snapshot.FetchedAt(),
		Members:   make([]model.MemberSummary, 0, len(sel.All)),
	}

	for i, memberName := range sel.All {
		member, ok := s.snapshot.Get(memberName)
		if !ok || !member.Alive {
			continue
		}

		m := model.MemberSummary{
			Index: i,
			Name:  member.Name,
			Alive: member.Alive,
		}
		if sample, ok := member.LatestSample(); ok && sample.HasDelays() {
			m.Delay = sample.Delay
			m.MeanDelay = sample.MeanDelay
			if at, ok := sample.CheckedAt(); ok {
				m.CheckedAt = at
			}
		}
		summary.Members = append(summary.Members, m)
	}

	return summary, nil
}

// PrintSelectorSummary writes the summary of the named selector.
func (s *Session) PrintSelectorSummary(w io.Writer, name string) error {
	summary, err := s.Summary(name)
	if err != nil {
		return err
	}
	return s.formatter.FormatSelector(w, summary)
}

// PrintSelectorNames writes the selector names in snapshot order.
func (s *Session) PrintSelectorNames(w io.Writer) error {
	if s.snapshot == nil {
		return ErrNoSnapshot
	}
	selectors := s.Selectors()
	names := make([]string, 0, len(selectors))
	for _, sel := range selectors {
		names = append(names, sel.Name)
	}
	return s.formatter.FormatNames(w, names)
}

// SelectByIndex makes all[index] of the named selector its active member and
// returns the chosen proxy name. The local snapshot is not updated; its now
// field stays stale until the next Refresh.
func (s *Session) SelectByIndex(ctx context.Context, selector string, index int) (string, error) {
	sel, err := s.Selector(selector)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(sel.All) {
		return "", fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(sel.All))
	}

	proxy := sel.All[index]
	if err := s.gateway.SelectProxy(ctx, selector, proxy); err != nil {
		return "", fmt.Errorf("select %q for %q: %w", proxy, selector, err)
	}
	s.logger.Debug("proxy selected", "selector", selector, "proxy", proxy)
	return proxy, nil
}
