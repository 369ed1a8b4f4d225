package session

import "github.com/aitail/aitail/internal/telemetry"

// AddedFunc is called once for every record that becomes visible on arrival.
type AddedFunc func(t *telemetry.Telemetry)

// ReplacedFunc is called with the complete filtered view after every filter
// change. The slice belongs to the callee.
type ReplacedFunc func(view []*telemetry.Telemetry)

// notification carries one queued change to the subscriber.
type notification struct {
	added    *telemetry.Telemetry
	replaced []*telemetry.Telemetry
	replace  bool
}

func (n notification) dispatch(onAdded AddedFunc, onReplaced ReplacedFunc) {
	if n.replace {
		if onReplaced != nil {
			onReplaced(n.replaced)
		}
		return
	}
	if onAdded != nil {
		onAdded(n.added)
	}
}

// Subscribe registers the change callbacks, replacing any previous pair.
// Either may be nil.
//
// Callbacks run on a goroutine that has just mutated the session, never
// while the session lock is held, and in the order the mutations happened.
// They may call back into the session; mutations made from a callback are
// delivered after it returns.
func (s *Session) Subscribe(onAdded AddedFunc, onReplaced ReplacedFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAdded = onAdded
	s.onReplaced = onReplaced
}

// enqueueLocked queues n for delivery. Caller must hold s.mu.
func (s *Session) enqueueLocked(n notification) {
	s.pending = append(s.pending, n)
}

// deliver drains the notification queue unless another goroutine is already
// draining it, in which case that goroutine delivers ours too. Must be
// called without s.mu held.
func (s *Session) deliver() {
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.delivering = false
			s.mu.Unlock()
			panic(r)
		}
	}()

	for {
		n, onAdded, onReplaced, ok := s.next()
		if !ok {
			return
		}
		n.dispatch(onAdded, onReplaced)
	}
}

// next pops the oldest notification along with the current subscriber. When
// the queue is empty it clears the delivering flag under the same lock, so a
// concurrent enqueue either sees the flag cleared or gets popped here.
func (s *Session) next() (notification, AddedFunc, ReplacedFunc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		s.delivering = false
		s.pending = nil
		return notification{}, nil, nil, false
	}
	n := s.pending[0]
	s.pending[0] = notification{}
	s.pending = s.pending[1:]
	return n, s.onAdded, s.onReplaced, true
}
