// Package registry keeps named observable streams and the subscriptions
// attached to them.
//
// A Registry owns two tables: key paths to streams, and subscribers to their
// active subscription handles. Publishing a value emits it into the stream,
// which runs every attached filter-then-handler chain synchronously on the
// caller's goroutine, in subscription order.
//
//	reg := registry.New[*Widget]()
//	_ = reg.Initialize(keypath.New("counter"), 0)
//	_ = reg.Subscribe(w, registry.Subscription[*Widget]{
//		ObservableKey: keypath.New("counter"),
//		OnValue:       func(w *Widget, v any) { w.Render(v) },
//	})
//	_ = reg.Publish(ctx, keypath.New("counter"), 1)
//	_ = reg.Unsubscribe(w)
//
// No registry lock is held while a stream dispatches, so handlers may call
// back into the registry. Changes they make apply to later publishes only.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nfrund/streamhub/internal/keypath"
	"github.com/nfrund/streamhub/internal/pubsub"
	"github.com/nfrund/streamhub/internal/stream"
)

type entry struct {
	path   keypath.Path
	stream stream.Stream
}

// Registry maps key paths to streams and subscribers to their handles.
// S identifies a subscriber; pointers to the subscribing object work well.
type Registry[S comparable] struct {
	opts     options
	validate *validator.Validate
	logger   *slog.Logger

	obsMu       sync.RWMutex
	observables map[string]*entry

	subMu         sync.Mutex
	subscriptions map[S][]stream.Disposable
}

// New creates an empty registry.
func New[S comparable](opts ...Option) *Registry[S] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry[S]{
		opts:          o,
		validate:      newValidator(),
		logger:        o.logger.With("component", "registry"),
		observables:   make(map[string]*entry),
		subscriptions: make(map[S][]stream.Disposable),
	}
}

// Initialize creates the stream for path seeded with initial. A path can be
// initialized once; a second attempt returns ErrDuplicateInitialization and
// leaves the existing stream untouched.
func (r *Registry[S]) Initialize(path keypath.Path, initial any) error {
	if err := path.Validate(); err != nil {
		return newError(ErrInvalidKeyPath, path.String(), err)
	}

	r.obsMu.Lock()
	defer r.obsMu.Unlock()

	key := path.Key()
	if _, exists := r.observables[key]; exists {
		return newError(ErrDuplicateInitialization, path.String(), nil)
	}

	r.observables[key] = &entry{
		path:   keypath.New(path...),
		stream: r.opts.factory(path, initial),
	}
	r.logger.Debug("Observable initialized", "path", path.String())
	return nil
}

// IsInitialized reports whether path has a stream.
func (r *Registry[S]) IsInitialized(path keypath.Path) bool {
	_, ok := r.lookup(path)
	return ok
}

// lookup finds the entry for path. Invalid paths address no slot.
func (r *Registry[S]) lookup(path keypath.Path) (*entry, bool) {
	if path.Validate() != nil {
		return nil, false
	}
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	e, ok := r.observables[path.Key()]
	return e, ok
}

// Subscribe replaces the subscriber's subscriptions with subs. Every
// subscription is checked before anything changes: an invalid config yields
// ErrInvalidSubscription and an uninitialized key ErrUnknownObservable, with
// the previous subscriptions left in place.
//
// Replay-latest streams deliver their current value to each new handler
// before Subscribe returns. Subscribing with no configs removes the
// subscriber.
func (r *Registry[S]) Subscribe(subscriber S, subs ...Subscription[S]) error {
	targets := make([]*entry, len(subs))
	for i, sub := range subs {
		if err := r.validate.Struct(sub); err != nil {
			return newError(ErrInvalidSubscription, sub.ObservableKey.String(),
				fmt.Errorf("subscription %d: %w", i, err))
		}
		e, ok := r.lookup(sub.ObservableKey)
		if !ok {
			return newError(ErrUnknownObservable, sub.ObservableKey.String(), nil)
		}
		targets[i] = e
	}

	r.subMu.Lock()
	previous := r.subscriptions[subscriber]
	delete(r.subscriptions, subscriber)
	r.subMu.Unlock()
	disposeAll(previous)

	if len(subs) == 0 {
		return nil
	}

	handles := make([]stream.Disposable, 0, len(subs))
	for i, sub := range subs {
		handles = append(handles, targets[i].stream.Subscribe(sub.dispatch(subscriber)))
	}

	r.subMu.Lock()
	// A handler may have re-subscribed this subscriber during replay; the
	// outer call wins.
	stale := r.subscriptions[subscriber]
	r.subscriptions[subscriber] = handles
	r.subMu.Unlock()
	disposeAll(stale)

	r.logger.Debug("Subscriber attached", "subscriptions", len(handles), "replaced", len(previous) > 0)
	return nil
}

// Unsubscribe disposes every handle held for subscriber and forgets it.
// It returns ErrNotSubscribed when the subscriber has no subscriptions,
// including on a second consecutive call.
func (r *Registry[S]) Unsubscribe(subscriber S) error {
	r.subMu.Lock()
	handles, ok := r.subscriptions[subscriber]
	delete(r.subscriptions, subscriber)
	r.subMu.Unlock()

	if !ok {
		return newError(ErrNotSubscribed, "", nil)
	}

	disposeAll(handles)
	r.logger.Debug("Subscriber detached", "subscriptions", len(handles))
	return nil
}

// HasSubscriptions reports whether subscriber currently has subscriptions.
func (r *Registry[S]) HasSubscriptions(subscriber S) bool {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	_, ok := r.subscriptions[subscriber]
	return ok
}

// Publish emits value into the stream at path. Every handler attached to
// that stream runs before Publish returns.
func (r *Registry[S]) Publish(ctx context.Context, path keypath.Path, value any) error {
	ctx, span := r.opts.tracer.Start(ctx, "registry.publish",
		trace.WithAttributes(attribute.String("registry.key_path", path.String())),
	)
	defer span.End()

	if err := path.Validate(); err != nil {
		err := newError(ErrInvalidKeyPath, path.String(), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	e, ok := r.lookup(path)
	if !ok {
		err := newError(ErrUnknownObservable, path.String(), nil)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	e.stream.Emit(value)

	if r.opts.mirror != nil {
		r.mirror(ctx, e.path, value)
	}
	return nil
}

// mirror forwards a published value to the configured publisher. Failures are
// logged: local dispatch has already happened.
func (r *Registry[S]) mirror(ctx context.Context, path keypath.Path, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		r.logger.Error("Failed to encode mirrored value", "path", path.String(), "error", err)
		return
	}

	msg := pubsub.Message{
		ID:      uuid.NewString(),
		Topic:   path.String(),
		Payload: payload,
		Metadata: map[string]string{
			"key_path_segments": fmt.Sprint(len(path)),
		},
	}
	if err := r.opts.mirror.Publish(ctx, msg); err != nil {
		r.logger.Error("Failed to mirror published value", "path", path.String(), "error", err)
	}
}

// Value returns the current value of a replay-latest stream.
func (r *Registry[S]) Value(path keypath.Path) (any, error) {
	if err := path.Validate(); err != nil {
		return nil, newError(ErrInvalidKeyPath, path.String(), err)
	}
	e, ok := r.lookup(path)
	if !ok {
		return nil, newError(ErrUnknownObservable, path.String(), nil)
	}
	v, ok := e.stream.(stream.Valuer)
	if !ok {
		return nil, newError(ErrNoCurrentValue, path.String(), nil)
	}
	return v.Value(), nil
}

// Paths returns every initialized key path, sorted by key.
func (r *Registry[S]) Paths() []keypath.Path {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()

	keys := make([]string, 0, len(r.observables))
	for k := range r.observables {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	paths := make([]keypath.Path, len(keys))
	for i, k := range keys {
		paths[i] = keypath.New(r.observables[k].path...)
	}
	return paths
}

// Snapshot returns a copy of the current value of every stream that exposes
// one, laid out as a nested mapping by key path. Stored values are never
// modified.
func (r *Registry[S]) Snapshot() (map[string]any, error) {
	root := make(map[string]any)
	for _, p := range r.Paths() {
		v, err := r.Value(p)
		if err != nil {
			continue
		}
		if err := keypath.Set(root, p, keypath.Clone(v)); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// Stats describes the registry's current size.
type Stats struct {
	Observables int `json:"observables"`
	Subscribers int `json:"subscribers"`
	Handles     int `json:"handles"`
}

// Stats returns registry statistics.
func (r *Registry[S]) Stats() Stats {
	r.obsMu.RLock()
	observables := len(r.observables)
	r.obsMu.RUnlock()

	r.subMu.Lock()
	defer r.subMu.Unlock()

	stats := Stats{
		Observables: observables,
		Subscribers: len(r.subscriptions),
	}
	for _, handles := range r.subscriptions {
		stats.Handles += len(handles)
	}
	return stats
}

func disposeAll(handles []stream.Disposable) {
	for _, h := range handles {
		h.Dispose()
	}
}
