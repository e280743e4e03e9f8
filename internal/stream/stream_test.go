package stream_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/nfrund/streamhub/internal/keypath"
	"github.com/nfrund/streamhub/internal/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func record(into *[]any) func(any) {
	return func(v any) { *into = append(*into, v) }
}

func TestBehavior(t *testing.T) {
	t.Run("replays current value on subscribe", func(t *testing.T) {
		s := stream.NewBehavior(0)
		var got []any
		s.Subscribe(record(&got))
		s.Emit(1)
		s.Emit(2)
		assert.Equal(t, []any{0, 1, 2}, got)
	})

	t.Run("late subscriber sees latest value", func(t *testing.T) {
		s := stream.NewBehavior("a")
		s.Emit("b")
		var got []any
		s.Subscribe(record(&got))
		assert.Equal(t, []any{"b"}, got)
		assert.Equal(t, "b", s.Value())
	})

	t.Run("delivers in subscription order", func(t *testing.T) {
		s := stream.NewBehavior(nil)
		var order []string
		s.Subscribe(func(any) { order = append(order, "first") })
		s.Subscribe(func(any) { order = append(order, "second") })
		order = nil
		s.Emit(1)
		assert.Equal(t, []string{"first", "second"}, order)
	})
}

func TestHot(t *testing.T) {
	s := stream.NewHot(0)
	var got []any
	s.Subscribe(record(&got))
	assert.Empty(t, got, "hot streams must not replay")

	s.Emit(1)
	assert.Equal(t, []any{1}, got)
	assert.Equal(t, 1, s.Value())
}

func TestDispose(t *testing.T) {
	t.Run("stops delivery", func(t *testing.T) {
		s := stream.NewHot(nil)
		var got []any
		d := s.Subscribe(record(&got))
		s.Emit(1)
		d.Dispose()
		s.Emit(2)
		assert.Equal(t, []any{1}, got)
	})

	t.Run("is idempotent and isolated", func(t *testing.T) {
		s := stream.NewHot(nil)
		var a, b []any
		da := s.Subscribe(record(&a))
		s.Subscribe(record(&b))

		da.Dispose()
		da.Dispose()
		s.Emit(1)

		assert.Empty(t, a)
		assert.Equal(t, []any{1}, b)
	})

	t.Run("disposed mid-emit skips remaining delivery", func(t *testing.T) {
		s := stream.NewHot(nil)
		var second []any
		var d stream.Disposable
		s.Subscribe(func(any) { d.Dispose() })
		d = s.Subscribe(record(&second))

		s.Emit(1)
		assert.Empty(t, second)
	})

	t.Run("subscribe during emit waits for next emit", func(t *testing.T) {
		s := stream.NewHot(nil)
		var late []any
		subscribed := false
		s.Subscribe(func(any) {
			if !subscribed {
				subscribed = true
				s.Subscribe(record(&late))
			}
		})

		s.Emit(1)
		assert.Empty(t, late)
		s.Emit(2)
		assert.Equal(t, []any{2}, late)
	})
}

func TestFactories(t *testing.T) {
	p := keypath.New("counter")

	b := stream.BehaviorFactory(p, 7)
	assert.IsType(t, &stream.Behavior{}, b)
	assert.Equal(t, 7, b.(stream.Valuer).Value())

	h := stream.HotFactory(p, 7)
	assert.IsType(t, &stream.Hot{}, h)
}

func TestConcurrentEmit(t *testing.T) {
	s := stream.NewBehavior(0)
	var mu sync.Mutex
	count := 0
	s.Subscribe(func(any) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			s.Emit(v)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 51, count)
}
