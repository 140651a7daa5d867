package chat

//go:generate mockgen -destination=mocks/channel_mock.go -package=mocks . Channel

// Channel is one client's outbound event stream as seen by the Hub.
type Channel interface {
	// ID returns the connection ID assigned by the transport.
	ID() string
	// Push enqueues an event without blocking. An error means the event was
	// not delivered and will not be retried.
	Push(evt Event) error
	// Alive reports whether the underlying connection is still open.
	Alive() bool
}
