package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/google/uuid"

	"github.com/nfrund/streamhub/internal/keypath"
	"github.com/nfrund/streamhub/internal/registry"
	"github.com/nfrund/streamhub/internal/script"
	"github.com/nfrund/streamhub/internal/stream"
)

// Subscriber is the identity a scenario subscribes on behalf of.
type Subscriber struct {
	Name string
	ID   uuid.UUID
}

// Delivery is one value received by a subscriber's handler.
type Delivery struct {
	Step         int    `json:"step"`
	Subscriber   string `json:"subscriber"`
	SubscriberID string `json:"subscriber_id"`
	Path         string `json:"path"`
	Value        any    `json:"value,omitempty"`
	Error        string `json:"error,omitempty"`
}

// StepResult records the outcome of one step.
type StepResult struct {
	Index int    `json:"index"`
	Op    Op     `json:"op"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Report is the outcome of a run.
type Report struct {
	Scenario   string         `json:"scenario"`
	Steps      []StepResult   `json:"steps"`
	Deliveries []Delivery     `json:"deliveries"`
	Snapshot   map[string]any `json:"snapshot,omitempty"`
	Stats      registry.Stats `json:"stats"`
}

// Failed reports whether any step did not behave as expected.
func (r *Report) Failed() bool {
	for _, s := range r.Steps {
		if !s.OK {
			return true
		}
	}
	return false
}

// Runner executes scenarios against a fresh registry per run.
type Runner struct {
	base   *slog.Logger
	logger *slog.Logger
	opts   []registry.Option
	limits script.SecurityLimits
}

// NewRunner creates a runner. opts configure every registry it builds.
func NewRunner(logger *slog.Logger, opts ...registry.Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		base:   logger,
		logger: logger.With("component", "scenario"),
		opts:   opts,
		limits: script.DefaultSecurityLimits(),
	}
}

// filterFailure carries a filter error from the filter to the handler.
type filterFailure struct{ err error }

// run holds per-run state.
type run struct {
	ctx         context.Context
	reg         *registry.Registry[*Subscriber]
	subscribers map[string]*Subscriber
	report      *Report
	step        int
}

// Run executes every step in order. Step failures are recorded in the report
// rather than aborting the run; the returned error covers problems with the
// scenario itself, such as a filter that does not compile.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	// The runner's logger is a default; options passed to NewRunner win.
	opts := append([]registry.Option{registry.WithLogger(r.base)}, r.opts...)
	if sc.Replay != nil {
		factory := stream.HotFactory
		if *sc.Replay {
			factory = stream.BehaviorFactory
		}
		opts = append(opts, registry.WithFactory(factory))
	}

	st := &run{
		ctx:         ctx,
		reg:         registry.New[*Subscriber](opts...),
		subscribers: make(map[string]*Subscriber),
		report: &Report{
			Scenario:   sc.Name,
			Steps:      make([]StepResult, 0, len(sc.Steps)),
			Deliveries: []Delivery{},
		},
	}

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return st.report, err
		}
		st.step = i

		err := r.exec(st, step)
		var filterErr *script.ScriptError
		if errors.As(err, &filterErr) && filterErr.Type == script.ErrorTypeCompilation {
			return st.report, fmt.Errorf("%w: step %d: %v", ErrInvalidScenario, i, err)
		}

		result := StepResult{Index: i, Op: step.Op}
		result.OK, result.Error = checkOutcome(step, err)
		if !result.OK {
			r.logger.Warn("Scenario step did not behave as expected", "step", i, "op", step.Op, "error", result.Error)
		}
		st.report.Steps = append(st.report.Steps, result)
	}

	snapshot, err := st.reg.Snapshot()
	if err != nil {
		r.logger.Warn("Snapshot unavailable", "error", err)
	}
	st.report.Snapshot = snapshot
	st.report.Stats = st.reg.Stats()

	r.logger.Info("Scenario finished",
		"scenario", sc.Name,
		"steps", len(st.report.Steps),
		"deliveries", len(st.report.Deliveries),
		"failed", st.report.Failed(),
	)
	return st.report, nil
}

// checkOutcome compares a step's error with its expectation.
func checkOutcome(step Step, err error) (bool, string) {
	if step.ExpectError == "" {
		if err != nil {
			return false, err.Error()
		}
		return true, ""
	}
	if err == nil {
		return false, fmt.Sprintf("expected %s error, step succeeded", step.ExpectError)
	}
	var regErr *registry.Error
	if errors.As(err, &regErr) && string(regErr.Type) == step.ExpectError {
		return true, err.Error()
	}
	return false, fmt.Sprintf("expected %s error, got: %v", step.ExpectError, err)
}

func (r *Runner) exec(st *run, step Step) error {
	switch step.Op {
	case OpInitialize:
		return st.reg.Initialize(step.Path.KeyPath(), step.Value)
	case OpPublish:
		return st.reg.Publish(st.ctx, step.Path.KeyPath(), step.Value)
	case OpUnsubscribe:
		return st.reg.Unsubscribe(st.subscriber(step.Subscriber))
	case OpSubscribe:
		subs := make([]registry.Subscription[*Subscriber], 0, len(step.Subscriptions))
		for _, spec := range step.Subscriptions {
			sub, err := r.subscription(st, spec)
			if err != nil {
				return err
			}
			subs = append(subs, sub)
		}
		return st.reg.Subscribe(st.subscriber(step.Subscriber), subs...)
	case OpExpect:
		return expectValue(st.reg, step.Path.KeyPath(), step.Value)
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

// expectValue checks the snapshot value at path. Mappings compare by content,
// so a parent path can be checked against its nested children.
func expectValue(reg *registry.Registry[*Subscriber], path keypath.Path, want any) error {
	snapshot, err := reg.Snapshot()
	if err != nil {
		return err
	}
	got, ok := keypath.Get(snapshot, path)
	if !ok {
		return fmt.Errorf("no current value at %s", path.String())
	}
	if !reflect.DeepEqual(got, want) {
		return fmt.Errorf("value at %s is %v (%T), want %v (%T)", path.String(), got, got, want, want)
	}
	return nil
}

func (st *run) subscriber(name string) *Subscriber {
	s, ok := st.subscribers[name]
	if !ok {
		s = &Subscriber{Name: name, ID: uuid.New()}
		st.subscribers[name] = s
	}
	return s
}

func (r *Runner) subscription(st *run, spec SubscriptionSpec) (registry.Subscription[*Subscriber], error) {
	path := spec.Observable.KeyPath()
	sub := registry.Subscription[*Subscriber]{
		ObservableKey: path,
		OnValue: func(s *Subscriber, v any) {
			d := Delivery{
				Step:         st.step,
				Subscriber:   s.Name,
				SubscriberID: s.ID.String(),
				Path:         path.String(),
			}
			if failure, ok := v.(filterFailure); ok {
				d.Error = failure.err.Error()
			} else {
				d.Value = v
			}
			st.report.Deliveries = append(st.report.Deliveries, d)
		},
	}

	if spec.Filter == "" {
		return sub, nil
	}

	filter, err := script.CompileFilter(spec.Filter, r.limits)
	if err != nil {
		return sub, err
	}
	sub.Filter = func(s *Subscriber, v any) any {
		out, err := filter.Apply(st.ctx, script.Input{Subscriber: s.Name, Path: path.String(), Value: v})
		if err != nil {
			r.logger.Error("Filter failed",
				"subscriber", s.Name,
				"path", path.String(),
				"expression", filter.Expression(),
				"error", err,
			)
			return filterFailure{err: err}
		}
		return out
	}
	return sub, nil
}
