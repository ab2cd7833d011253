package rx

import "fmt"

// Kind is the state carried by a Notification.
type Kind int

const (
	// KindRunning marks an operation that has started.
	KindRunning Kind = iota
	// KindValue carries a successful result.
	KindValue
	// KindError carries a failure.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindRunning:
		return "running"
	case KindValue:
		return "value"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Notification wraps an asynchronous outcome as data so a stream of operations
// survives failures.
type Notification[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// Running returns a running notification.
func Running[T any]() Notification[T] {
	return Notification[T]{Kind: KindRunning}
}

// Value returns a value notification.
func Value[T any](v T) Notification[T] {
	return Notification[T]{Kind: KindValue, Value: v}
}

// Failure returns an error notification.
func Failure[T any](err error) Notification[T] {
	return Notification[T]{Kind: KindError, Err: err}
}

// IsRunning reports whether n marks a started operation.
func (n Notification[T]) IsRunning() bool { return n.Kind == KindRunning }

// IsValue reports whether n carries a result.
func (n Notification[T]) IsValue() bool { return n.Kind == KindValue }

// IsError reports whether n carries a failure.
func (n Notification[T]) IsError() bool { return n.Kind == KindError }

// Values forwards only the results of a Notification stream.
func Values[T any](src Observable[Notification[T]]) Observable[T] {
	return Map(Filter(src, Notification[T].IsValue), func(n Notification[T]) T { return n.Value })
}

// Errors forwards only the failures of a Notification stream.
func Errors[T any](src Observable[Notification[T]]) Observable[error] {
	return Map(Filter(src, Notification[T].IsError), func(n Notification[T]) error { return n.Err })
}

// Runs forwards a Void for every running transition, for progress indicators.
func Runs[T any](src Observable[Notification[T]]) Observable[Void] {
	return Ignore(Filter(src, Notification[T].IsRunning))
}

// Split shares src and returns its value and error halves.
func Split[T any](src Observable[Notification[T]]) (Observable[T], Observable[error]) {
	shared := Share(src)
	return Values(shared), Errors(shared)
}

// ErrorMessages maps errors to display strings, dropping nil errors and empty messages.
func ErrorMessages(src Observable[error], message func(error) string) Observable[string] {
	if message == nil {
		message = func(err error) string { return err.Error() }
	}
	nonNil := Filter(src, func(err error) bool { return err != nil })
	return Filter(Map(nonNil, message), func(s string) bool { return s != "" })
}
