// Package stream provides the hot, multicast broadcast primitives the
// registry stores under each key path.
//
// Emit runs every subscribed callback synchronously on the caller's goroutine,
// in subscription order, against a snapshot of the subscriber list taken when
// Emit starts.
package stream

import (
	"sync"
	"sync/atomic"

	"github.com/nfrund/streamhub/internal/keypath"
)

// Disposable cancels a subscription. Dispose may be called more than once.
type Disposable interface {
	Dispose()
}

// Stream is a hot broadcast primitive.
type Stream interface {
	// Subscribe attaches fn to every future emit and returns its handle.
	Subscribe(fn func(value any)) Disposable
	// Emit delivers value to every currently subscribed callback.
	Emit(value any)
}

// Valuer is implemented by streams that remember their latest value.
type Valuer interface {
	Value() any
}

// Factory builds the stream stored for a newly initialized key path.
type Factory func(path keypath.Path, initial any) Stream

// BehaviorFactory builds replay-latest streams seeded with the initial value.
func BehaviorFactory(_ keypath.Path, initial any) Stream {
	return NewBehavior(initial)
}

// HotFactory builds streams that never replay.
func HotFactory(_ keypath.Path, initial any) Stream {
	return NewHot(initial)
}

// subscription is a single callback registration.
type subscription struct {
	fn       func(any)
	disposed atomic.Bool
	once     sync.Once
	detach   func(*subscription)
}

func (s *subscription) deliver(v any) {
	if s.disposed.Load() {
		return
	}
	s.fn(v)
}

// Dispose marks the subscription before detaching it, so an emit that already
// took its snapshot skips it.
func (s *subscription) Dispose() {
	s.once.Do(func() {
		s.disposed.Store(true)
		s.detach(s)
	})
}

// broadcaster holds the ordered subscriber list shared by both stream kinds.
type broadcaster struct {
	mu    sync.Mutex
	value any
	subs  []*subscription
}

func (b *broadcaster) add(fn func(any)) (*subscription, any) {
	sub := &subscription{fn: fn, detach: b.remove}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	return sub, b.value
}

func (b *broadcaster) remove(target *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == target {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *broadcaster) emit(v any) {
	b.mu.Lock()
	b.value = v
	snapshot := make([]*subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, s := range snapshot {
		s.deliver(v)
	}
}

func (b *broadcaster) current() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Behavior replays its current value to each new subscriber before returning
// from Subscribe.
type Behavior struct {
	b broadcaster
}

// NewBehavior creates a replay-latest stream seeded with initial.
func NewBehavior(initial any) *Behavior {
	return &Behavior{b: broadcaster{value: initial}}
}

func (s *Behavior) Subscribe(fn func(value any)) Disposable {
	sub, current := s.b.add(fn)
	sub.deliver(current)
	return sub
}

func (s *Behavior) Emit(value any) { s.b.emit(value) }

// Value returns the latest emitted value, or the seed if nothing was emitted.
func (s *Behavior) Value() any { return s.b.current() }

// Hot only delivers values emitted after Subscribe. It still tracks the
// latest value for queries.
type Hot struct {
	b broadcaster
}

// NewHot creates a non-replaying stream. initial is only reported by Value.
func NewHot(initial any) *Hot {
	return &Hot{b: broadcaster{value: initial}}
}

func (s *Hot) Subscribe(fn func(value any)) Disposable {
	sub, _ := s.b.add(fn)
	return sub
}

func (s *Hot) Emit(value any) { s.b.emit(value) }

func (s *Hot) Value() any { return s.b.current() }

// Compile-time interface checks.
var (
	_ Stream     = (*Behavior)(nil)
	_ Valuer     = (*Behavior)(nil)
	_ Stream     = (*Hot)(nil)
	_ Valuer     = (*Hot)(nil)
	_ Disposable = (*subscription)(nil)
	_ Factory    = BehaviorFactory
	_ Factory    = HotFactory
)
