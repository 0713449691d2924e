package model

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrMissingProxies is returned when a /proxies body has no proxies object.
var ErrMissingProxies = errors.New("response has no proxies object")

// Snapshot is the full set of proxies from one GET /proxies, in the order
// the daemon listed them. It is not modified after construction.
type Snapshot struct {
	ID      ulid.ULID
	names   []string
	records map[string]*ProxyRecord
}

// NewSnapshot builds a snapshot from records in the given order.
// A later record with a duplicate name replaces the earlier one in place.
func NewSnapshot(records []ProxyRecord) (*Snapshot, error) {
	s, err := newSnapshot()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		s.add(r.Name, r)
	}
	return s, nil
}

func newSnapshot() (*Snapshot, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		ID:      id,
		records: make(map[string]*ProxyRecord),
	}, nil
}

func (s *Snapshot) add(key string, r ProxyRecord) {
	if r.Name == "" {
		r.Name = key
	}
	if _, exists := s.records[key]; !exists {
		s.names = append(s.names, key)
	}
	s.records[key] = &r
}

// ParseSnapshot decodes a /proxies body ({"proxies": {name: record}})
// keeping the daemon's key order.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var s *Snapshot
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != "proxies" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}

		s, err = newSnapshot()
		if err != nil {
			return nil, err
		}
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("proxies: %w", err)
		}
		for dec.More() {
			name, err := readKey(dec)
			if err != nil {
				return nil, err
			}
			var r ProxyRecord
			if err := dec.Decode(&r); err != nil {
				return nil, fmt.Errorf("proxy %q: %w", name, err)
			}
			s.add(name, r)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if tok, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected %v after response object", tok)
	}

	if s == nil {
		return nil, ErrMissingProxies
	}
	return s, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

// Len returns the number of proxies.
func (s *Snapshot) Len() int {
	return len(s.names)
}

// Names returns proxy names in snapshot order.
func (s *Snapshot) Names() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

// Get returns the record for name.
func (s *Snapshot) Get(name string) (*ProxyRecord, bool) {
	r, ok := s.records[name]
	return r, ok
}

// Records returns all records in snapshot order. Callers must not modify them.
func (s *Snapshot) Records() []*ProxyRecord {
	out := make([]*ProxyRecord, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.records[name])
	}
	return out
}

// FetchedAt returns the time encoded in the snapshot ID.
func (s *Snapshot) FetchedAt() time.Time {
	return ulid.Time(s.ID.Time())
}
