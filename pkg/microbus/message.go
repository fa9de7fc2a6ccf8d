package microbus

import "reflect"

// Message is anything that can travel through a Broker.
//
// Messages are routed by their concrete type and exchanged by pointer, so
// the only way to implement Message is to embed EventBase or BroadcastBase
// in a struct and send a pointer to it. Messages must not be modified after
// they are sent.
type Message interface {
	message()
}

// Broadcast is a Message delivered to every subscribed service.
type Broadcast interface {
	Message
	broadcast()
}

// AnyEvent is an Event with its result type erased. It is the constraint
// used when declaring event handlers.
type AnyEvent interface {
	Message
	event()
}

// Event is a Message delivered to exactly one subscribed service, which may
// answer it with a single result of type R.
type Event[R any] interface {
	AnyEvent
	result(R)
}

// EventBase marks a struct as an Event whose result has type R.
//
//	type DetectObjects struct {
//	    microbus.EventBase[[]TrackedObject]
//	    Frame int
//	}
//
// The marker is never zero-sized so two distinct events never share an
// address.
type EventBase[R any] struct {
	_ byte
}

func (*EventBase[R]) message() {}
func (*EventBase[R]) event()   {}
func (*EventBase[R]) result(R) {}

// BroadcastBase marks a struct as a Broadcast.
//
//	type Tick struct {
//	    microbus.BroadcastBase
//	    N int
//	}
type BroadcastBase struct {
	_ byte
}

func (*BroadcastBase) message()   {}
func (*BroadcastBase) broadcast() {}

// TypeOf returns the routing key of a message.
func TypeOf(m Message) reflect.Type {
	return reflect.TypeOf(m)
}

// TypeFor returns the routing key of message type M.
//
//	broker.SubscribeBroadcast(microbus.TypeFor[*Tick](), handle)
func TypeFor[M Message]() reflect.Type {
	return reflect.TypeFor[M]()
}

// CrashedBroadcast announces that a service hit an unrecoverable error and
// is terminating. Services send it automatically when a handler fails;
// reacting to it is up to the application.
type CrashedBroadcast struct {
	BroadcastBase

	// Sender is the name of the crashed service.
	Sender string
	// SenderID is the crashed service's handle ID.
	SenderID string
	// Error describes the failure.
	Error string
}
