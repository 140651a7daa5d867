package broadcast

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

type fakeConn struct {
	id     string
	closed atomic.Int32
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Close() error {
	c.closed.Add(1)
	return nil
}

func TestClientSet_AddRemove(t *testing.T) {
	s := NewClientSet(&mockLogger{})

	a, b := &fakeConn{id: "a"}, &fakeConn{id: "b"}
	if !s.Add(a) || !s.Add(b) {
		t.Fatal("Add() returned false before shutdown")
	}
	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}

	s.Remove("a")
	s.Remove("a")
	if s.Count() != 1 {
		t.Errorf("Count() after Remove = %d, want 1", s.Count())
	}
}

func TestClientSet_RunClosesClients(t *testing.T) {
	s := NewClientSet(&mockLogger{})
	a, b := &fakeConn{id: "a"}, &fakeConn{id: "b"}
	s.Add(a)
	s.Add(b)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after cancel")
	}

	if a.closed.Load() != 1 || b.closed.Load() != 1 {
		t.Errorf("clients closed %d/%d times, want 1/1", a.closed.Load(), b.closed.Load())
	}
	if s.Count() != 0 {
		t.Errorf("Count() after shutdown = %d, want 0", s.Count())
	}
	if s.Add(&fakeConn{id: "late"}) {
		t.Error("Add() after shutdown should return false")
	}
}
