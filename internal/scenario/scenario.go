// Package scenario drives a registry from a YAML script of ordered steps and
// records every value delivered to each subscriber.
//
//	name: counter
//	steps:
//	  - op: initialize
//	    path: counter
//	    value: 0
//	  - op: subscribe
//	    subscriber: a
//	    subscriptions:
//	      - observable: counter
//	        filter: value * 2
//	  - op: publish
//	    path: counter
//	    value: 3
//	  - op: unsubscribe
//	    subscriber: a
//	  - op: expect
//	    path: counter
//	    value: 3
//
// A path is either a scalar (one segment) or a sequence of segments.
package scenario

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nfrund/streamhub/internal/keypath"
)

// Op names a registry operation.
type Op string

const (
	OpInitialize  Op = "initialize"
	OpSubscribe   Op = "subscribe"
	OpPublish     Op = "publish"
	OpUnsubscribe Op = "unsubscribe"
	// OpExpect compares the registry's current value at a path with Value.
	OpExpect Op = "expect"
)

var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a named list of steps.
type Scenario struct {
	Name        string `yaml:"name" json:"name" validate:"required"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Replay overrides the runner's stream kind when set.
	Replay *bool  `yaml:"replay,omitempty" json:"replay,omitempty"`
	Steps  []Step `yaml:"steps" json:"steps" validate:"required,min=1,dive"`
}

// Step is one registry call.
type Step struct {
	Op            Op                 `yaml:"op" json:"op" validate:"required,oneof=initialize subscribe publish unsubscribe expect"`
	Path          Path               `yaml:"path,omitempty" json:"path,omitempty"`
	Value         any                `yaml:"value,omitempty" json:"value,omitempty"`
	Subscriber    string             `yaml:"subscriber,omitempty" json:"subscriber,omitempty"`
	Subscriptions []SubscriptionSpec `yaml:"subscriptions,omitempty" json:"subscriptions,omitempty" validate:"dive"`
	// ExpectError names the registry error type the step must fail with,
	// e.g. "duplicate_initialization".
	ExpectError string `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`
}

// SubscriptionSpec describes one subscription of a subscribe step.
type SubscriptionSpec struct {
	Observable Path   `yaml:"observable" json:"observable" validate:"required,min=1"`
	Filter     string `yaml:"filter,omitempty" json:"filter,omitempty"`
}

// Path is a key path that decodes from a YAML scalar or sequence.
type Path keypath.Path

// UnmarshalYAML accepts `counter` as ["counter"] and `[user, name]` as
// ["user" "name"].
func (p *Path) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = Path(keypath.New(node.Value))
		return nil
	case yaml.SequenceNode:
		var segments []string
		if err := node.Decode(&segments); err != nil {
			return err
		}
		*p = Path(keypath.New(segments...))
		return nil
	default:
		return fmt.Errorf("line %d: key path must be a string or a list of strings", node.Line)
	}
}

// KeyPath converts back to keypath.Path.
func (p Path) KeyPath() keypath.Path {
	return keypath.Path(p)
}

// check enforces the fields each op needs.
func (s Step) check() error {
	switch s.Op {
	case OpInitialize, OpPublish, OpExpect:
		if len(s.Path) == 0 {
			return fmt.Errorf("%s requires a path", s.Op)
		}
	case OpSubscribe:
		if s.Subscriber == "" {
			return fmt.Errorf("%s requires a subscriber", s.Op)
		}
	case OpUnsubscribe:
		if s.Subscriber == "" {
			return fmt.Errorf("%s requires a subscriber", s.Op)
		}
		if len(s.Subscriptions) > 0 {
			return fmt.Errorf("%s does not take subscriptions", s.Op)
		}
	}
	return nil
}
