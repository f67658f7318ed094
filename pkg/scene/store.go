package scene

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/teslashibe/go-targetlock/internal/log"
	"github.com/teslashibe/go-targetlock/pkg/tracking"
	"github.com/teslashibe/go-targetlock/pkg/tracking/skeleton"
)

// Config controls snapshot staleness and track retention.
type Config struct {
	// A snapshot older than this is treated as an empty scene
	StaleAfter time.Duration `mapstructure:"stale_after"`
	// Tracks not seen for this long are forgotten
	ForgetTimeout time.Duration `mapstructure:"forget_timeout"`
}

// DefaultConfig returns the recommended store configuration.
func DefaultConfig() Config {
	return Config{
		StaleAfter:    500 * time.Millisecond,
		ForgetTimeout: 10 * time.Second,
	}
}

// Store holds the most recent detector snapshot. The feed writes it from
// websocket goroutines; the tick loop reads it through Bodies.
type Store struct {
	mu sync.RWMutex

	bodies    []skeleton.Body
	updatedAt time.Time
	tracks    map[int]*Track

	frames     uint64
	duplicates uint64

	config Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates an empty store.
func New(cfg Config) *Store {
	return &Store{
		tracks: make(map[int]*Track),
		config: cfg,
		logger: log.Component("scene.store"),
		now:    time.Now,
	}
}

// Replace stores a new snapshot received at the given time. Bodies with an ID
// already present in the snapshot are dropped. Returns the number kept.
func (s *Store) Replace(bodies []skeleton.Body, at time.Time) int {
	kept := make([]skeleton.Body, 0, len(bodies))
	seen := make(map[int]bool, len(bodies))
	dropped := 0

	for _, b := range bodies {
		if seen[b.ID] {
			dropped++
			continue
		}
		seen[b.ID] = true
		kept = append(kept, b.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bodies = kept
	s.updatedAt = at
	s.frames++
	s.duplicates += uint64(dropped)

	for _, b := range kept {
		tr, ok := s.tracks[b.ID]
		if !ok {
			tr = &Track{ID: b.ID, FirstSeen: at}
			s.tracks[b.ID] = tr
			s.logger.Debug("new body", "id", b.ID)
		}
		tr.LastSeen = at
		tr.Frames++
		tr.Root = b.Root
	}
	s.forgetLocked(at)

	if dropped > 0 {
		s.logger.Debug("dropped bodies with duplicate IDs", "count", dropped)
	}
	return len(kept)
}

// Bodies returns a copy of the latest snapshot, or nil once it is stale.
func (s *Store) Bodies(now time.Time) []skeleton.Body {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.staleLocked(now) {
		return nil
	}

	out := make([]skeleton.Body, len(s.bodies))
	for i, b := range s.bodies {
		out[i] = b.Clone()
	}
	return out
}

// Tracks returns copies of the tracks seen within the forget timeout, by ID.
func (s *Store) Tracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.forgetLocked(s.now())

	result := make([]Track, 0, len(s.tracks))
	for _, tr := range s.tracks {
		result = append(result, *tr)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Stats returns counters for the status API.
func (s *Store) Stats() Stats {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Frames:     s.frames,
		Bodies:     len(s.bodies),
		Tracks:     len(s.tracks),
		Duplicates: s.duplicates,
		LastUpdate: s.updatedAt,
		Stale:      s.staleLocked(now),
	}
	if !s.updatedAt.IsZero() {
		st.Age = now.Sub(s.updatedAt)
	}
	return st
}

// Clear removes the snapshot and all tracks.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = nil
	s.updatedAt = time.Time{}
	s.tracks = make(map[int]*Track)
}

func (s *Store) staleLocked(now time.Time) bool {
	if s.updatedAt.IsZero() {
		return true
	}
	return s.config.StaleAfter > 0 && now.Sub(s.updatedAt) > s.config.StaleAfter
}

func (s *Store) forgetLocked(now time.Time) {
	if s.config.ForgetTimeout <= 0 {
		return
	}
	for id, tr := range s.tracks {
		if now.Sub(tr.LastSeen) > s.config.ForgetTimeout {
			delete(s.tracks, id)
			s.logger.Debug("forgot body", "id", id)
		}
	}
}

var _ tracking.BodySource = (*Store)(nil)
