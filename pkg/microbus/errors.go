package microbus

import (
	"errors"
	"fmt"
)

// Sentinel errors for registration and the receive loop.
var (
	// ErrNotRegistered indicates a mailbox operation on a worker that has no
	// mailbox, either because it never registered or because it was
	// unregistered. This is a programming error on the caller's side.
	ErrNotRegistered = errors.New("worker not registered")

	// ErrServiceTerminated indicates Run was called on a service that has
	// already run. Services are never reused.
	ErrServiceTerminated = errors.New("service already ran")
)

// Sentinel errors for handler declaration.
var (
	// ErrLateSubscription indicates a handler was declared after the
	// receive loop started.
	ErrLateSubscription = errors.New("handlers must be declared before the receive loop starts")

	// ErrNotInitializing indicates a handler was declared on a service
	// that has not started running its InitFunc yet.
	ErrNotInitializing = errors.New("handlers must be declared from the service's InitFunc")

	// ErrNilHandler indicates a nil handler function.
	ErrNilHandler = errors.New("handler is required")

	// ErrInvalidMessageType indicates a handler for something other than a
	// pointer message type.
	ErrInvalidMessageType = errors.New("message type must be a pointer type")

	// ErrHandlerPanic indicates a handler panicked.
	ErrHandlerPanic = errors.New("handler panicked")
)

// HandlerError wraps a handler failure with the service and message that
// caused it. A service returning a HandlerError from Run has crashed.
type HandlerError struct {
	// Service is the name of the service whose handler failed.
	Service string
	// MessageType is the routing type of the message being handled.
	MessageType string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("service %s handling %s: %v", e.Service, e.MessageType, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HandlerError) Unwrap() error {
	return e.Err
}
