package broadcast

import (
	"context"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
)

// Conn is an open client connection that can be closed on shutdown.
type Conn interface {
	ID() string
	Close() error
}

// ClientSet tracks open WebSocket clients and closes them all when its
// context is cancelled.
type ClientSet struct {
	clients map[string]Conn // connectionID -> Conn
	closed  bool
	done    chan struct{}
	mu      sync.RWMutex
	logger  types.Logger
}

// NewClientSet creates an empty ClientSet.
func NewClientSet(logger types.Logger) *ClientSet {
	return &ClientSet{
		clients: make(map[string]Conn),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// Run blocks until ctx is done, then closes every client.
func (s *ClientSet) Run(ctx context.Context) {
	<-ctx.Done()
	s.logger.Info("Shutting down client set")
	s.closeAllClients()
	close(s.done)
}

// Wait blocks until Run has returned.
func (s *ClientSet) Wait() {
	<-s.done
}

// closeAllClients closes all connected client connections.
func (s *ClientSet) closeAllClients() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]Conn)
	s.closed = true
	s.mu.Unlock()

	for id, conn := range clients {
		if err := conn.Close(); err != nil {
			s.logger.Debug("Failed to close client", "connectionID", id, "error", err)
		}
	}
	s.logger.Info("Closed clients", "count", len(clients))
}

// Add tracks conn. It returns false once the set has shut down.
func (s *ClientSet) Add(conn Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.clients[conn.ID()] = conn
	s.logger.Debug("Client registered", "connectionID", conn.ID())
	return true
}

// Remove stops tracking the client with the given ID.
func (s *ClientSet) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[id]; ok {
		delete(s.clients, id)
		s.logger.Debug("Client unregistered", "connectionID", id)
	}
}

// Count returns the total number of connected clients.
func (s *ClientSet) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
