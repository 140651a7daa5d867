package broadcast

import (
	"sync"
	"time"
)

// StatsSnapshot is a point-in-time copy of the chat activity counters.
type StatsSnapshot struct {
	Joins            int64     `json:"joins"`
	Leaves           int64     `json:"leaves"`
	Messages         int64     `json:"messages"`
	Photos           int64     `json:"photos"`
	Participants     int       `json:"participants"`
	PeakParticipants int       `json:"peak_participants"`
	LastActivity     time.Time `json:"last_activity,omitzero"`
}

// Stats accumulates chat activity seen on the event bus.
type Stats struct {
	mu   sync.RWMutex
	snap StatsSnapshot
}

// NewStats creates zeroed stats.
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) recordJoin(userCount int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Joins++
	s.snap.Participants = userCount
	s.snap.PeakParticipants = max(s.snap.PeakParticipants, userCount)
	s.touch(at)
}

func (s *Stats) recordLeave(userCount int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Leaves++
	s.snap.Participants = userCount
	s.touch(at)
}

func (s *Stats) recordMessage(photo bool, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Messages++
	if photo {
		s.snap.Photos++
	}
	s.touch(at)
}

// touch must be called with mu held. Events may arrive out of order.
func (s *Stats) touch(at time.Time) {
	if at.After(s.snap.LastActivity) {
		s.snap.LastActivity = at
	}
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
