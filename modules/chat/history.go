package chat

import (
	"sync"

	domain "github.com/example/chatnest/domain/chat"
)

// History is a bounded, ordered, in-memory log of chat messages.
// When full, the oldest message is evicted first.
type History struct {
	mu       sync.RWMutex
	messages []domain.Message
	limit    int
}

// NewHistory creates a history holding at most limit messages.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = domain.DefaultMaxMessages
	}
	return &History{
		messages: make([]domain.Message, 0, min(limit, 64)),
		limit:    limit,
	}
}

// Append adds a message to the tail, evicting from the head while over the limit.
func (h *History) Append(msg domain.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, msg)
	if over := len(h.messages) - h.limit; over > 0 {
		// Copy down so the backing array does not grow without bound.
		n := copy(h.messages, h.messages[over:])
		clear(h.messages[n:])
		h.messages = h.messages[:n]
	}
}

// LastN returns the most recent min(n, Len()) messages in arrival order.
func (h *History) LastN(n int) []domain.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 {
		return []domain.Message{}
	}
	if n > len(h.messages) {
		n = len(h.messages)
	}

	result := make([]domain.Message, n)
	copy(result, h.messages[len(h.messages)-n:])
	return result
}

// Len returns the number of stored messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Limit returns the capacity of the history.
func (h *History) Limit() int {
	return h.limit
}
