package chat

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/cases"

	domain "github.com/example/chatnest/domain/chat"
)

// Registry tracks joined participants by connection ID and keeps usernames
// unique under Unicode case folding.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]domain.Participant // connectionID -> Participant
	names        map[string]string             // folded username -> connectionID
	now          func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[string]domain.Participant),
		names:        make(map[string]string),
		now:          time.Now,
	}
}

// foldName returns the comparison key for a username.
// A cases.Caser keeps state, so one is created per call.
func foldName(username string) string {
	return cases.Fold().String(username)
}

// TryRegister registers connectionID under candidate. The candidate is trimmed
// before validation. Nothing changes when an error is returned.
func (r *Registry) TryRegister(connectionID, candidate string) (domain.Participant, error) {
	username := strings.TrimSpace(candidate)
	if err := domain.ValidateUsername(username); err != nil {
		return domain.Participant{}, err
	}
	key := foldName(username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.participants[connectionID]; exists {
		return domain.Participant{}, domain.ErrAlreadyJoined
	}
	if _, taken := r.names[key]; taken {
		return domain.Participant{}, domain.ErrUsernameTaken
	}

	now := r.now()
	p := domain.Participant{
		ConnectionID: connectionID,
		Username:     username,
		JoinedAt:     now,
		LastActiveAt: now,
	}
	r.participants[connectionID] = p
	r.names[key] = connectionID
	return p, nil
}

// Touch refreshes the last activity time of a participant.
func (r *Registry) Touch(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[connectionID]
	if !ok {
		return
	}
	p.LastActiveAt = r.now()
	r.participants[connectionID] = p
}

// Remove deletes the participant for connectionID. It is safe to call more than once.
func (r *Registry) Remove(connectionID string) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[connectionID]
	if !ok {
		return domain.Participant{}, false
	}
	delete(r.participants, connectionID)
	delete(r.names, foldName(p.Username))
	return p, true
}

// Lookup returns a copy of the participant for connectionID.
func (r *Registry) Lookup(connectionID string) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[connectionID]
	return p, ok
}

// Count returns the number of joined participants.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// Snapshot returns the presence list sorted by folded username.
func (r *Registry) Snapshot() []domain.PresenceEntry {
	r.mu.RLock()
	entries := lo.MapToSlice(r.participants, func(_ string, p domain.Participant) domain.PresenceEntry {
		return domain.PresenceEntry{Username: p.Username, JoinedAt: p.JoinedAt}
	})
	r.mu.RUnlock()

	keys := make(map[string]string, len(entries))
	for _, e := range entries {
		keys[e.Username] = foldName(e.Username)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ki, kj := keys[entries[i].Username], keys[entries[j].Username]
		if ki != kj {
			return ki < kj
		}
		return entries[i].Username < entries[j].Username
	})
	return entries
}
