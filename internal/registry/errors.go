package registry

// ErrorType defines the type of registry error
type ErrorType string

const (
	ErrorDuplicateInitialization ErrorType = "duplicate_initialization"
	ErrorUnknownObservable       ErrorType = "unknown_observable"
	ErrorNotSubscribed           ErrorType = "not_subscribed"
	ErrorInvalidKeyPath          ErrorType = "invalid_key_path"
	ErrorInvalidSubscription     ErrorType = "invalid_subscription"
	ErrorNoCurrentValue          ErrorType = "no_current_value"
)

// Error represents structured errors returned by the registry.
type Error struct {
	Type    ErrorType `json:"type"`
	Path    string    `json:"path,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"cause,omitempty"`
}

// Sentinel values for errors.Is. Matching compares Type only.
var (
	ErrDuplicateInitialization = &Error{Type: ErrorDuplicateInitialization, Message: "observable already initialized"}
	ErrUnknownObservable       = &Error{Type: ErrorUnknownObservable, Message: "observable not initialized"}
	ErrNotSubscribed           = &Error{Type: ErrorNotSubscribed, Message: "subscriber has no active subscriptions"}
	ErrInvalidKeyPath          = &Error{Type: ErrorInvalidKeyPath, Message: "invalid key path"}
	ErrInvalidSubscription     = &Error{Type: ErrorInvalidSubscription, Message: "invalid subscription"}
	ErrNoCurrentValue          = &Error{Type: ErrorNoCurrentValue, Message: "observable does not expose a current value"}
)

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a registry error of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

func newError(base *Error, path string, cause error) *Error {
	return &Error{
		Type:    base.Type,
		Path:    path,
		Message: base.Message,
		Cause:   cause,
	}
}
