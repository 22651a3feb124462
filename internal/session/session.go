// Package session holds the state behind an interactive filtering session: an
// immutable original dataset captured at load time and a working dataset that
// successive filters replace.
//
// States are Empty and Loaded. Filtering or resetting an Empty session fails
// with ErrNoDataLoaded. Filters are all-or-nothing: on error the working
// dataset is left as it was.
package session

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/filter"
	"github.com/RC-CHN/CHARLS-FILTER/internal/metrics"
)

// metricsJob labels session metrics.
const metricsJob = "datafilter"

// ErrNoDataLoaded is returned by operations that need a loaded dataset.
var ErrNoDataLoaded = errors.New("no data loaded")

// State is the lifecycle state of a session.
type State int

const (
	Empty State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "empty"
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Step records one successful filter.
type Step struct {
	Description string    `json:"description"`
	Removed     int       `json:"removed"`
	Remaining   int       `json:"remaining"`
	At          time.Time `json:"at"`
}

// Status is a snapshot of the session for display.
type Status struct {
	ID           string   `json:"id"`
	State        State    `json:"state"`
	Source       string   `json:"source,omitempty"`
	Rows         int      `json:"rows"`
	Cols         int      `json:"cols"`
	OriginalRows int      `json:"original_rows"`
	Columns      []string `json:"columns,omitempty"`
	Fingerprint  string   `json:"fingerprint,omitempty"`
	History      []Step   `json:"history,omitempty"`
}

// Session is safe for concurrent use; calls are serialized internally.
type Session struct {
	mu       sync.Mutex
	id       uuid.UUID
	state    State
	source   string
	original *dataset.Dataset
	working  *dataset.Dataset
	history  []Step

	now func() time.Time
}

// New returns an Empty session with a fresh random id.
func New() *Session {
	return &Session{id: uuid.New(), now: time.Now}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id.String() }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load replaces any previous data. Both original and working become
// independent copies of ds and the filter history is cleared.
func (s *Session) Load(source string, ds *dataset.Dataset) error {
	if ds == nil {
		return fmt.Errorf("load %s: nil dataset", source)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.original = ds.Clone()
	s.working = ds.Clone()
	s.source = source
	s.state = Loaded
	s.history = nil
	log.Printf("session: id=%s load source=%q rows=%d cols=%d", s.id, source, ds.NumRows(), ds.NumCols())
	return nil
}

// Filter applies p to the working dataset and returns the number of rows it
// removed.
func (s *Session) Filter(p filter.Predicate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Loaded {
		return 0, ErrNoDataLoaded
	}

	next, removed, err := p.Apply(s.working)
	if err != nil {
		return 0, err
	}
	s.working = next
	s.history = append(s.history, Step{
		Description: p.String(),
		Removed:     removed,
		Remaining:   next.NumRows(),
		At:          s.now(),
	})
	metrics.RecordRows(metricsJob, "removed", int64(removed))
	log.Printf("session: id=%s filter=%q removed=%d remaining=%d", s.id, p.String(), removed, next.NumRows())
	return removed, nil
}

// Reset restores the working dataset to a fresh copy of the original.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Loaded {
		return ErrNoDataLoaded
	}
	s.working = s.original.Clone()
	s.history = nil
	log.Printf("session: id=%s reset rows=%d", s.id, s.working.NumRows())
	return nil
}

// Working returns the current working dataset.
func (s *Session) Working() (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Loaded {
		return nil, ErrNoDataLoaded
	}
	return s.working, nil
}

// Original returns the dataset as loaded.
func (s *Session) Original() (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Loaded {
		return nil, ErrNoDataLoaded
	}
	return s.original, nil
}

// History returns the filters applied since the last load or reset.
func (s *Session) History() []Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Step(nil), s.history...)
}

// Status returns a snapshot suitable for a status bar.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{ID: s.id.String(), State: s.state}
	if s.state != Loaded {
		return st
	}
	st.Source = s.source
	st.Rows = s.working.NumRows()
	st.Cols = s.working.NumCols()
	st.OriginalRows = s.original.NumRows()
	st.Columns = s.working.Names()
	st.Fingerprint = fmt.Sprintf("%016x", s.working.Fingerprint())
	st.History = append([]Step(nil), s.history...)
	return st
}
