package chat

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/example/chatnest/domain/chat"
)

// fakeChannel records every pushed event.
type fakeChannel struct {
	id     string
	mu     sync.Mutex
	events []Event
	frames [][]byte
	dead   bool
	err    error
}

func newFakeChannel(id string) *fakeChannel {
	return &fakeChannel{id: id}
}

func (c *fakeChannel) ID() string { return c.id }

func (c *fakeChannel) Push(evt Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	data, err := evt.JSON()
	if err != nil {
		return err
	}
	c.events = append(c.events, evt)
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeChannel) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.dead
}

func (c *fakeChannel) types() []EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EventType, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func (c *fakeChannel) ofType(t EventType) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (c *fakeChannel) last() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func (c *fakeChannel) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	mu     sync.Mutex
	joined []string
	left   []string
	leftAt []time.Time
	posted []string
}

func (o *recordingObserver) ParticipantJoined(p domain.Participant, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.joined = append(o.joined, p.Username)
}

func (o *recordingObserver) ParticipantLeft(p domain.Participant, _ int, leftAt time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.left = append(o.left, p.Username)
	o.leftAt = append(o.leftAt, leftAt)
}

func (o *recordingObserver) MessagePosted(msg domain.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.posted = append(o.posted, msg.ID)
}

func newTestHub(opts ...HubOption) *Hub {
	seq := 0
	opts = append([]HubOption{WithIDGenerator(func() string {
		seq++
		return fmt.Sprintf("msg-%d", seq)
	})}, opts...)
	return NewHub(1000, newMockLogger(), opts...)
}

func connectAndJoin(t *testing.T, h *Hub, id, username string) *fakeChannel {
	t.Helper()
	ch := newFakeChannel(id)
	h.OnConnect(ch)
	h.OnJoin(ch, username)
	require.NotEmpty(t, ch.ofType(EventJoinSuccess), "%s should have joined", username)
	return ch
}

func TestHub_OnConnect(t *testing.T) {
	h := newTestHub()
	ch := newFakeChannel("c1")

	h.OnConnect(ch)

	require.Equal(t, []EventType{EventConnectionEstablished}, ch.types())
	payload := ch.last().Payload.(ConnectionEstablishedPayload)
	assert.Equal(t, "c1", payload.ConnectionID)
	assert.Equal(t, 1, h.ConnectionCount())
	assert.Equal(t, 0, h.UserCount())
}

func TestHub_JoinSequence(t *testing.T) {
	h := newTestHub()
	ch := newFakeChannel("c1")
	h.OnConnect(ch)
	ch.reset()

	h.OnJoin(ch, "Alice")

	require.Equal(t, []EventType{
		EventUserJoined,
		EventUpdateUsers,
		EventMessageHistory,
		EventJoinSuccess,
	}, ch.types())

	joined := ch.ofType(EventUserJoined)[0].Payload.(PresenceChangePayload)
	assert.Equal(t, "Alice", joined.Username)
	assert.Equal(t, 1, joined.UserCount)

	success := ch.last().Payload.(JoinSuccessPayload)
	assert.Equal(t, JoinSuccessPayload{Username: "Alice", UserCount: 1}, success)
}

func TestHub_NameCollisionScenario(t *testing.T) {
	h := newTestHub()
	obs := &recordingObserver{}
	h.observer = obs

	c1 := connectAndJoin(t, h, "c1", "Alice")

	c2 := newFakeChannel("c2")
	h.OnConnect(c2)
	h.OnJoin(c2, "alice")

	joinErrs := c2.ofType(EventJoinError)
	require.Len(t, joinErrs, 1)
	assert.Equal(t, "Username is already taken", joinErrs[0].Payload.(JoinErrorPayload).Error)
	assert.Empty(t, c2.ofType(EventJoinSuccess))
	assert.Len(t, c1.ofType(EventUserJoined), 1, "c1 must not see a join for the rejected name")

	// The rejected connection can still join under a different name.
	h.OnJoin(c2, "Bob")
	require.Len(t, c2.ofType(EventJoinSuccess), 1)

	users := h.Users()
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Username)
	assert.Equal(t, "Bob", users[1].Username)

	bobJoined := c1.ofType(EventUserJoined)[1].Payload.(PresenceChangePayload)
	assert.Equal(t, "Bob", bobJoined.Username)
	assert.Equal(t, 2, bobJoined.UserCount)

	assert.Equal(t, []string{"Alice", "Bob"}, obs.joined)
}

func TestHub_JoinErrors(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     string
	}{
		{name: "too short", username: "a", want: "Username must be between 2 and 20 characters"},
		{name: "blank", username: "   ", want: "Username must be between 2 and 20 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHub()
			ch := newFakeChannel("c1")
			h.OnConnect(ch)
			h.OnJoin(ch, tt.username)

			errs := ch.ofType(EventJoinError)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.want, errs[0].Payload.(JoinErrorPayload).Error)
			assert.Equal(t, 0, h.UserCount())
		})
	}
}

func TestHub_JoinTwice(t *testing.T) {
	h := newTestHub()
	ch := connectAndJoin(t, h, "c1", "Alice")

	h.OnJoin(ch, "Alicia")

	errs := ch.ofType(EventJoinError)
	require.Len(t, errs, 1)
	assert.Equal(t, "You have already joined the chat", errs[0].Payload.(JoinErrorPayload).Error)
	assert.Equal(t, "Alice", h.Users()[0].Username)
}

func TestHub_OnMessageEchoesToEveryone(t *testing.T) {
	h := newTestHub()
	obs := &recordingObserver{}
	h.observer = obs
	alice := connectAndJoin(t, h, "c1", "Alice")
	bob := connectAndJoin(t, h, "c2", "Bob")

	h.OnMessage(alice, SendMessageRequest{Message: "  hi there  "})

	for _, ch := range []*fakeChannel{alice, bob} {
		msgs := ch.ofType(EventNewMessage)
		require.Len(t, msgs, 1, "channel %s", ch.id)
		msg := msgs[0].Payload.(domain.Message)
		assert.Equal(t, "Alice", msg.Username)
		assert.Equal(t, "hi there", msg.Text)
		assert.Equal(t, domain.KindText, msg.Kind)
	}
	assert.Len(t, h.History(10), 1)
	assert.Equal(t, []string{"msg-1"}, obs.posted)
}

func TestHub_OnMessageValidation(t *testing.T) {
	tests := []struct {
		name string
		req  SendMessageRequest
	}{
		{name: "empty text", req: SendMessageRequest{Message: "   "}},
		{name: "unknown kind", req: SendMessageRequest{Message: "hi", Type: "video"}},
		{name: "photo without url", req: SendMessageRequest{Type: "photo"}},
		{name: "too long", req: SendMessageRequest{Message: "abcdefghijk"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHub(WithMaxMessageLength(10))
			alice := connectAndJoin(t, h, "c1", "Alice")

			h.OnMessage(alice, tt.req)

			assert.Empty(t, alice.ofType(EventNewMessage))
			assert.Equal(t, 0, len(h.History(10)))
		})
	}
}

func TestHub_PhotoMessage(t *testing.T) {
	h := newTestHub()
	alice := connectAndJoin(t, h, "c1", "Alice")

	h.OnMessage(alice, SendMessageRequest{Type: "photo", PhotoURL: "/photos/photo_1.png", Message: "sunset"})
	h.OnMessage(alice, SendMessageRequest{Type: "photo", Message: "/photos/photo_2.png"})

	msgs := h.History(10)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.KindPhoto, msgs[0].Kind)
	assert.Equal(t, "/photos/photo_1.png", msgs[0].PhotoURL)
	assert.Equal(t, "sunset", msgs[0].Text)
	assert.Equal(t, "/photos/photo_2.png", msgs[1].PhotoURL)
	assert.Empty(t, msgs[1].Text)
}

func TestHub_MessageKindIsCaseInsensitive(t *testing.T) {
	h := newTestHub()
	alice := connectAndJoin(t, h, "c1", "Alice")

	h.OnMessage(alice, SendMessageRequest{Type: "Photo", PhotoURL: "/photos/photo_1.png"})
	h.OnMessage(alice, SendMessageRequest{Type: " TEXT ", Message: "hi"})

	msgs := h.History(10)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.KindPhoto, msgs[0].Kind)
	assert.Equal(t, domain.KindText, msgs[1].Kind)
}

func TestHub_MessageBeforeJoinIgnored(t *testing.T) {
	h := newTestHub()
	alice := connectAndJoin(t, h, "c1", "Alice")
	stranger := newFakeChannel("c2")
	h.OnConnect(stranger)

	h.OnMessage(stranger, SendMessageRequest{Message: "hello"})
	h.OnTyping(stranger, true)

	assert.Empty(t, alice.ofType(EventNewMessage))
	assert.Empty(t, alice.ofType(EventUserTyping))
	assert.Empty(t, h.History(10))
}

func TestHub_FullTimestampStrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	h := newTestHub(WithClock(func() time.Time { return fixed }))
	alice := connectAndJoin(t, h, "c1", "Alice")

	for i := 0; i < 5; i++ {
		h.OnMessage(alice, SendMessageRequest{Message: fmt.Sprintf("m%d", i)})
	}

	msgs := h.History(10)
	require.Len(t, msgs, 5)
	for i := 1; i < len(msgs); i++ {
		assert.Less(t, msgs[i-1].FullTimestamp, msgs[i].FullTimestamp)
	}
	assert.Equal(t, "10:00 AM", msgs[0].Timestamp)
}

func TestHub_TypingExcludesSender(t *testing.T) {
	h := newTestHub()
	alice := connectAndJoin(t, h, "c1", "Alice")
	bob := connectAndJoin(t, h, "c2", "Bob")
	carol := connectAndJoin(t, h, "c3", "Carol")

	h.OnTyping(alice, true)

	assert.Empty(t, alice.ofType(EventUserTyping))
	for _, ch := range []*fakeChannel{bob, carol} {
		typing := ch.ofType(EventUserTyping)
		require.Len(t, typing, 1)
		assert.Equal(t, UserTypingPayload{Username: "Alice", IsTyping: true}, typing[0].Payload)
	}
}

func TestHub_HistoryReplay(t *testing.T) {
	h := newTestHub()
	alice := connectAndJoin(t, h, "c1", "Alice")
	for i := 0; i < 30; i++ {
		h.OnMessage(alice, SendMessageRequest{Message: fmt.Sprintf("m%d", i)})
	}

	bob := connectAndJoin(t, h, "c2", "Bob")
	history := bob.ofType(EventMessageHistory)
	require.Len(t, history, 1)
	msgs := history[0].Payload.(MessageHistoryPayload).Messages
	require.Len(t, msgs, 30)
	assert.Equal(t, "m0", msgs[0].Text)

	for i := 30; i < 80; i++ {
		h.OnMessage(alice, SendMessageRequest{Message: fmt.Sprintf("m%d", i)})
	}
	carol := connectAndJoin(t, h, "c3", "Carol")
	msgs = carol.ofType(EventMessageHistory)[0].Payload.(MessageHistoryPayload).Messages
	require.Len(t, msgs, domain.DefaultHistoryReplay)
	assert.Equal(t, "m30", msgs[0].Text)
	assert.Equal(t, "m79", msgs[49].Text)
}

func TestHub_LeaveThenDisconnect(t *testing.T) {
	h := newTestHub()
	obs := &recordingObserver{}
	h.observer = obs
	alice := connectAndJoin(t, h, "c1", "Alice")
	bob := connectAndJoin(t, h, "c2", "Bob")
	bob.reset()

	h.OnLeave(alice)
	h.OnDisconnect(alice)

	left := bob.ofType(EventUserLeft)
	require.Len(t, left, 1)
	payload := left[0].Payload.(PresenceChangePayload)
	assert.Equal(t, "Alice", payload.Username)
	assert.Equal(t, 1, payload.UserCount)
	assert.Equal(t, []EventType{EventUserLeft, EventUpdateUsers}, bob.types())
	assert.Equal(t, []string{"Alice"}, obs.left)

	// Events after leaving are ignored.
	h.OnMessage(alice, SendMessageRequest{Message: "still here?"})
	h.OnJoin(alice, "Alice2")
	assert.Empty(t, bob.ofType(EventNewMessage))
	assert.Equal(t, 1, h.UserCount())
	assert.Equal(t, 1, h.ConnectionCount())
}

func TestHub_LeaveTimeComesFromClock(t *testing.T) {
	joined := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	current := joined
	obs := &recordingObserver{}
	h := newTestHub(WithClock(func() time.Time { return current }), WithObserver(obs))
	alice := connectAndJoin(t, h, "c1", "Alice")
	bob := connectAndJoin(t, h, "c2", "Bob")

	current = joined.Add(90 * time.Second)
	h.OnDisconnect(alice)

	left := bob.ofType(EventUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, "09:01:30", left[0].Payload.(PresenceChangePayload).Timestamp)
	require.Len(t, obs.leftAt, 1)
	assert.True(t, obs.leftAt[0].Equal(current), "observer leftAt = %v, want %v", obs.leftAt[0], current)
}

func TestHub_DisconnectBeforeJoin(t *testing.T) {
	h := newTestHub()
	alice := connectAndJoin(t, h, "c1", "Alice")
	alice.reset()
	ghost := newFakeChannel("c2")
	h.OnConnect(ghost)

	h.OnDisconnect(ghost)

	assert.Empty(t, alice.types())
	assert.Equal(t, 1, h.ConnectionCount())
}

func TestHub_NameReusableAfterDisconnect(t *testing.T) {
	h := newTestHub()
	alice := connectAndJoin(t, h, "c1", "Alice")
	h.OnDisconnect(alice)

	connectAndJoin(t, h, "c2", "ALICE")
	assert.Equal(t, 1, h.UserCount())
}

func TestHub_RequestUsers(t *testing.T) {
	h := newTestHub()
	alice := connectAndJoin(t, h, "c1", "Alice")
	bob := connectAndJoin(t, h, "c2", "Bob")
	alice.reset()
	bob.reset()

	h.OnRequestUsers(bob)

	assert.Empty(t, alice.types())
	require.Equal(t, []EventType{EventUpdateUsers}, bob.types())
	payload := bob.last().Payload.(UpdateUsersPayload)
	assert.Equal(t, 2, payload.Count)
}

func TestHub_FailedPushDoesNotAffectOthers(t *testing.T) {
	h := newTestHub()
	alice := connectAndJoin(t, h, "c1", "Alice")
	bob := connectAndJoin(t, h, "c2", "Bob")
	carol := connectAndJoin(t, h, "c3", "Carol")
	bob.err = errors.New("queue full")
	carol.mu.Lock()
	carol.dead = true
	carol.mu.Unlock()

	h.OnMessage(alice, SendMessageRequest{Message: "hello"})

	assert.Len(t, alice.ofType(EventNewMessage), 1)
	assert.Len(t, h.History(10), 1)
	assert.Empty(t, carol.ofType(EventNewMessage))
}

func TestHub_Censor(t *testing.T) {
	moderator, err := NewModerator([]string{"darn"}, '*')
	require.NoError(t, err)
	h := newTestHub(WithCensor(moderator))
	alice := connectAndJoin(t, h, "c1", "Alice")

	h.OnMessage(alice, SendMessageRequest{Message: "well DARN it"})

	assert.Equal(t, "well **** it", h.History(1)[0].Text)
}

func TestHub_ConcurrentJoinsSameName(t *testing.T) {
	h := newTestHub()
	channels := make([]*fakeChannel, 20)
	for i := range channels {
		channels[i] = newFakeChannel(fmt.Sprintf("c%d", i))
		h.OnConnect(channels[i])
	}

	var wg sync.WaitGroup
	for _, ch := range channels {
		wg.Add(1)
		go func(ch *fakeChannel) {
			defer wg.Done()
			h.OnJoin(ch, "Alice")
		}(ch)
	}
	wg.Wait()

	successes := 0
	for _, ch := range channels {
		successes += len(ch.ofType(EventJoinSuccess))
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, h.UserCount())
}

// countingPayload counts how often it is encoded.
type countingPayload struct {
	calls *atomic.Int32
}

func (p countingPayload) MarshalJSON() ([]byte, error) {
	p.calls.Add(1)
	return []byte(`{"n":1}`), nil
}

func TestHub_BroadcastEncodesOnce(t *testing.T) {
	h := newTestHub()
	alice := connectAndJoin(t, h, "c1", "Alice")
	bob := connectAndJoin(t, h, "c2", "Bob")
	carol := connectAndJoin(t, h, "c3", "Carol")

	var calls atomic.Int32
	h.mu.Lock()
	h.broadcast(Event{Type: EventNewMessage, Payload: countingPayload{calls: &calls}}, "")
	h.mu.Unlock()

	assert.Equal(t, int32(1), calls.Load())
	want := []byte(`{"type":"new_message","payload":{"n":1}}`)
	for _, ch := range []*fakeChannel{alice, bob, carol} {
		ch.mu.Lock()
		got := ch.frames[len(ch.frames)-1]
		ch.mu.Unlock()
		assert.JSONEq(t, string(want), string(got), "frame for %s", ch.id)
	}
}
