package registry

import (
	"github.com/go-playground/validator/v10"

	"github.com/nfrund/streamhub/internal/keypath"
)

// Handler receives a dispatched value on behalf of a subscriber.
type Handler[S comparable] func(subscriber S, value any)

// Filter transforms a published value before it reaches the Handler.
type Filter[S comparable] func(subscriber S, value any) any

// Subscription binds a subscriber's behavior to one observable.
type Subscription[S comparable] struct {
	ObservableKey keypath.Path `validate:"required,keypath"`
	OnValue       Handler[S]   `validate:"required"`
	// Filter is optional. Without it the raw published value is passed on.
	Filter Filter[S]
}

// dispatch applies the filter, then the handler.
func (s Subscription[S]) dispatch(subscriber S) func(any) {
	return func(value any) {
		if s.Filter != nil {
			value = s.Filter(subscriber, value)
		}
		s.OnValue(subscriber, value)
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("keypath", validKeyPath)
	return v
}

// validKeyPath accepts a keypath.Path that addresses a slot.
func validKeyPath(fl validator.FieldLevel) bool {
	p, ok := fl.Field().Interface().(keypath.Path)
	return ok && p.Validate() == nil
}
