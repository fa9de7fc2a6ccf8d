package microbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/microbus/pkg/microbus/future"
	"github.com/randalmurphal/microbus/pkg/microbus/observability"
)

// State is a service's lifecycle position. Transitions only move forward.
type State int32

// Service lifecycle states.
const (
	StateCreated State = iota
	StateRegistered
	StateRunning
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRegistered:
		return "registered"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// InitFunc declares a service's handlers. It runs once, on the service's
// goroutine, after registration and before the receive loop.
type InitFunc func(s *Service) error

type handlerFunc func(ctx context.Context, msg Message) error

// Service is a worker unit: a named actor with its own mailbox and a
// receive loop that runs handlers one at a time.
//
// Handlers of one service never run concurrently with each other, so a
// service's own state needs no locking as long as only its handlers touch
// it.
type Service struct {
	handle *Handle
	broker *Broker
	init   InitFunc
	logger *slog.Logger

	// handlers is written during initialization only.
	handlers map[reflect.Type]handlerFunc

	state         atomic.Int32
	stopRequested atomic.Bool
	handled       int

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
}

// NewService creates a service bound to broker. Nothing happens until Run.
func NewService(name string, broker *Broker, init InitFunc, opts ...ServiceOption) *Service {
	h := NewHandle(name)
	s := &Service{
		handle:   h,
		broker:   broker,
		init:     init,
		logger:   observability.EnrichLogger(broker.logger, h.Name(), h.ID()),
		handlers: make(map[reflect.Type]handlerFunc),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the service name.
func (s *Service) Name() string { return s.handle.Name() }

// Handle returns the service's identity on the broker.
func (s *Service) Handle() *Handle { return s.handle }

// Broker returns the broker the service is bound to.
func (s *Service) Broker() *Broker { return s.broker }

// Logger returns the service logger.
func (s *Service) Logger() *slog.Logger { return s.logger }

// State returns the current lifecycle state.
func (s *Service) State() State { return State(s.state.Load()) }

// Ready is closed once initialization succeeded and the loop is about to
// start.
func (s *Service) Ready() <-chan struct{} { return s.ready }

// Done is closed when Run returns.
func (s *Service) Done() <-chan struct{} { return s.done }

// OnEvent declares the handler for event type E. Call it from the service's
// InitFunc. The handler answers the event, if it wants to, by calling
// Complete; its return value only signals failure.
func OnEvent[E AnyEvent](s *Service, fn func(ctx context.Context, e E) error) error {
	if fn == nil {
		return ErrNilHandler
	}
	t, err := s.declare(reflect.TypeFor[E](), func(ctx context.Context, msg Message) error {
		return fn(ctx, msg.(E))
	})
	if err != nil {
		return err
	}
	s.broker.SubscribeEvent(t, s.handle)
	return nil
}

// OnBroadcast declares the handler for broadcast type B. Call it from the
// service's InitFunc.
func OnBroadcast[B Broadcast](s *Service, fn func(ctx context.Context, b B) error) error {
	if fn == nil {
		return ErrNilHandler
	}
	t, err := s.declare(reflect.TypeFor[B](), func(ctx context.Context, msg Message) error {
		return fn(ctx, msg.(B))
	})
	if err != nil {
		return err
	}
	s.broker.SubscribeBroadcast(t, s.handle)
	return nil
}

func (s *Service) declare(t reflect.Type, h handlerFunc) (reflect.Type, error) {
	switch s.State() {
	case StateRegistered:
	case StateCreated:
		return nil, fmt.Errorf("declare %s on %s: %w", t, s.handle, ErrNotInitializing)
	default:
		return nil, fmt.Errorf("declare %s on %s: %w", t, s.handle, ErrLateSubscription)
	}
	if t.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMessageType, t)
	}
	s.handlers[t] = h
	return t, nil
}

// Send sends an event on behalf of s. See SendEvent.
func Send[R any](s *Service, e Event[R]) *future.Future[R] {
	return sendEvent(s.broker, s.handle, e)
}

// SendBroadcast sends a broadcast on behalf of s and returns how many
// mailboxes received it.
func (s *Service) SendBroadcast(msg Broadcast) int {
	return s.broker.sendBroadcast(s.handle, msg)
}

// Terminate asks the receive loop to stop. It does not interrupt a wait in
// progress: the loop notices after the next message, or when Run's context
// ends.
func (s *Service) Terminate() {
	s.stopRequested.Store(true)
}

// Terminated reports whether Terminate was called.
func (s *Service) Terminated() bool {
	return s.stopRequested.Load()
}

// Run registers the service, runs its InitFunc, then handles messages
// until Terminate is called, ctx ends, or a handler fails. The service is
// unregistered on return.
//
// A handler failure broadcasts a CrashedBroadcast, terminates the service
// and is returned as a *HandlerError. When ctx ends, Run returns ctx.Err().
func (s *Service) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateRegistered)) {
		return fmt.Errorf("run %s: %w", s.handle, ErrServiceTerminated)
	}
	defer close(s.done)
	defer s.state.Store(int32(StateTerminated))

	s.broker.Register(s.handle)
	defer s.broker.Unregister(s.handle)

	if s.init != nil {
		if err := s.init(s); err != nil {
			return fmt.Errorf("initialize %s: %w", s.handle, err)
		}
	}

	s.state.Store(int32(StateRunning))
	s.readyOnce.Do(func() { close(s.ready) })
	observability.LogServiceStart(s.logger, len(s.handlers))

	for !s.stopRequested.Load() {
		msg, err := s.broker.AwaitMessageContext(ctx, s.handle)
		if err != nil {
			if ctx.Err() != nil {
				observability.LogServiceStop(s.logger, s.handled, "context done")
				return ctx.Err()
			}
			return err
		}

		if err := s.dispatch(ctx, msg); err != nil {
			s.crash(ctx, err)
			observability.LogServiceStop(s.logger, s.handled, "crashed")
			return err
		}
	}

	observability.LogServiceStop(s.logger, s.handled, "terminated")
	return nil
}

func (s *Service) dispatch(ctx context.Context, msg Message) error {
	t := reflect.TypeOf(msg)
	h, ok := s.handlers[t]
	if !ok {
		observability.LogUnhandled(s.logger, t.String())
		return nil
	}

	elapsed := observability.TimedOperation()
	spanCtx, span := s.broker.spans.StartHandleSpan(ctx, s.Name(), t.String())
	err := invoke(spanCtx, h, msg)
	s.broker.spans.EndSpanWithError(span, err)
	s.broker.metrics.RecordMessageHandled(ctx, s.Name(), t.String(), elapsed(), err)
	s.handled++

	if err != nil {
		return &HandlerError{Service: s.Name(), MessageType: t.String(), Err: err}
	}
	return nil
}

func invoke(ctx context.Context, h handlerFunc, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(ctx, msg)
}

func (s *Service) crash(ctx context.Context, err error) {
	var herr *HandlerError
	messageType := ""
	if errors.As(err, &herr) {
		messageType = herr.MessageType
	}
	observability.LogServiceCrashed(s.logger, messageType, err)
	s.broker.metrics.RecordServiceCrashed(ctx, s.Name())

	s.SendBroadcast(&CrashedBroadcast{
		Sender:   s.Name(),
		SenderID: s.handle.ID(),
		Error:    err.Error(),
	})
	s.Terminate()
}
