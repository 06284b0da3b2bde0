package hub

import "sync"

// SessionHandle is the transport-neutral interface for streaming events to a
// watcher. It keeps jobs independent of websockets and SSH.
type SessionHandle interface {
	// ID returns the unique session identifier.
	ID() SessionID

	// Send delivers an event without blocking.
	Send(evt Event)

	// Done returns a channel that closes when the session ends.
	Done() <-chan struct{}
}

// ChannelSession is a SessionHandle backed by a buffered channel.
type ChannelSession struct {
	id       SessionID
	events   chan Event
	done     chan struct{}
	doneOnce sync.Once
}

// NewChannelSession creates a new channel-based session handle.
// eventBufferSize controls how many events can be buffered before dropping.
func NewChannelSession(id SessionID, eventBufferSize int) *ChannelSession {
	if eventBufferSize < 1 {
		eventBufferSize = 64
	}
	return &ChannelSession{
		id:     id,
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *ChannelSession) ID() SessionID {
	return s.id
}

// Send queues an event. When the buffer is full the oldest event is dropped,
// so a slow watcher sees fewer generations instead of stalling the search.
func (s *ChannelSession) Send(evt Event) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- evt:
	default:
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- evt:
		default:
		}
	}
}

// Events returns the channel to receive events from.
func (s *ChannelSession) Events() <-chan Event {
	return s.events
}

// Done returns the done channel.
func (s *ChannelSession) Done() <-chan struct{} {
	return s.done
}

// Close marks the session as done.
// Safe to call multiple times.
func (s *ChannelSession) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

// watcherSet counts the sessions watching any job. A session watching
// several jobs is counted once.
type watcherSet struct {
	mu   sync.Mutex
	refs map[SessionID]int
}

func (w *watcherSet) add(id SessionID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.refs == nil {
		w.refs = make(map[SessionID]int)
	}
	w.refs[id]++
}

func (w *watcherSet) remove(id SessionID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.refs[id]--; w.refs[id] <= 0 {
		delete(w.refs, id)
	}
}

func (w *watcherSet) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.refs)
}
