package microbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/randalmurphal/microbus/pkg/microbus/future"
	"github.com/randalmurphal/microbus/pkg/microbus/observability"
)

// Broker routes events and broadcasts between registered workers.
//
// Events go to one subscriber per send, chosen round-robin. Broadcasts go
// to every subscriber. Each table has its own lock and no lock is held
// while blocking, so unrelated workers never serialize on the broker.
type Broker struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	mailboxMu sync.RWMutex
	mailboxes map[*Handle]*mailbox

	rotationMu sync.Mutex
	rotations  map[reflect.Type][]*Handle

	listenerMu sync.RWMutex
	listeners  map[reflect.Type]map[*Handle]struct{}

	pendingMu sync.Mutex
	pending   map[AnyEvent]*pendingEvent
}

// pendingEvent tracks the result slot of one in-flight event.
type pendingEvent struct {
	slot     any // *future.Future[R] for the event's R
	typ      reflect.Type
	assignee *Handle
}

// NewBroker creates an empty broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		logger:    slog.Default(),
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
		mailboxes: make(map[*Handle]*mailbox),
		rotations: make(map[reflect.Type][]*Handle),
		listeners: make(map[reflect.Type]map[*Handle]struct{}),
		pending:   make(map[AnyEvent]*pendingEvent),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register creates a mailbox for h. Registering twice is a no-op.
func (b *Broker) Register(h *Handle) {
	b.mailboxMu.Lock()
	defer b.mailboxMu.Unlock()

	if _, ok := b.mailboxes[h]; !ok {
		b.mailboxes[h] = newMailbox()
	}
}

// Unregister removes h and everything it owns.
//
// Queued messages are dropped and callers blocked in AwaitMessage for h
// return ErrNotRegistered. h leaves every rotation and subscriber set.
// Pending events that can no longer be answered are forgotten: those whose
// type has no subscriber left, and those that were dispatched to h. Their
// futures are never resolved.
func (b *Broker) Unregister(h *Handle) {
	b.mailboxMu.Lock()
	mb := b.mailboxes[h]
	delete(b.mailboxes, h)
	b.mailboxMu.Unlock()

	if mb != nil {
		if dropped := mb.close(); dropped > 0 {
			b.logger.Debug("mailbox discarded",
				slog.String("service", h.Name()),
				slog.Int("dropped", dropped),
			)
		}
	}

	b.rotationMu.Lock()
	live := make(map[reflect.Type]bool, len(b.rotations))
	for t, rotation := range b.rotations {
		rotation = slices.DeleteFunc(rotation, func(x *Handle) bool { return x == h })
		if len(rotation) == 0 {
			delete(b.rotations, t)
			continue
		}
		b.rotations[t] = rotation
		live[t] = true
	}
	b.rotationMu.Unlock()

	b.listenerMu.Lock()
	for t, set := range b.listeners {
		delete(set, h)
		if len(set) == 0 {
			delete(b.listeners, t)
		}
	}
	b.listenerMu.Unlock()

	b.pendingMu.Lock()
	abandoned := 0
	for e, p := range b.pending {
		if p.assignee == h || (p.assignee != nil && !live[p.typ]) {
			delete(b.pending, e)
			abandoned++
		}
	}
	b.pendingMu.Unlock()

	observability.LogEventsAbandoned(b.logger, h.Name(), abandoned)
	b.metrics.RecordEventsAbandoned(context.Background(), abandoned)
}

// IsRegistered reports whether h currently has a mailbox.
func (b *Broker) IsRegistered(h *Handle) bool {
	b.mailboxMu.RLock()
	defer b.mailboxMu.RUnlock()
	_, ok := b.mailboxes[h]
	return ok
}

// SubscribeEvent adds h to the rotation for event type t.
// Subscribing twice does not create duplicate deliveries.
func (b *Broker) SubscribeEvent(t reflect.Type, h *Handle) {
	b.rotationMu.Lock()
	defer b.rotationMu.Unlock()

	rotation := b.rotations[t]
	if slices.Contains(rotation, h) {
		return
	}
	b.rotations[t] = append(rotation, h)
}

// SubscribeBroadcast adds h to the subscriber set for broadcast type t.
func (b *Broker) SubscribeBroadcast(t reflect.Type, h *Handle) {
	b.listenerMu.Lock()
	defer b.listenerMu.Unlock()

	set, ok := b.listeners[t]
	if !ok {
		set = make(map[*Handle]struct{})
		b.listeners[t] = set
	}
	set[h] = struct{}{}
}

// EventSubscribers returns the rotation for t, next receiver first.
func (b *Broker) EventSubscribers(t reflect.Type) []*Handle {
	b.rotationMu.Lock()
	defer b.rotationMu.Unlock()
	return slices.Clone(b.rotations[t])
}

// BroadcastSubscribers returns the subscribers of t in no particular order.
func (b *Broker) BroadcastSubscribers(t reflect.Type) []*Handle {
	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	return b.snapshotListeners(t)
}

// SendEvent dispatches e to the next subscriber of its type and returns the
// future its result will arrive in.
//
// It returns nil when nobody is subscribed, when the chosen subscriber was
// unregistered mid-send, or when e is already in flight. None of these is
// an error.
func SendEvent[R any](b *Broker, e Event[R]) *future.Future[R] {
	return sendEvent(b, nil, e)
}

func sendEvent[R any](b *Broker, sender *Handle, e Event[R]) *future.Future[R] {
	if e == nil {
		return nil
	}
	t := reflect.TypeOf(e)
	ctx := context.Background()

	// The slot is registered before the event is enqueued so a fast
	// handler's Complete always finds it.
	slot := future.New[R]()
	entry := &pendingEvent{slot: slot, typ: t}

	b.pendingMu.Lock()
	if _, inFlight := b.pending[e]; inFlight {
		b.pendingMu.Unlock()
		b.logger.Warn("event already in flight",
			slog.String("sender", sender.Name()),
			slog.String("message_type", t.String()),
		)
		return nil
	}
	b.pending[e] = entry
	b.pendingMu.Unlock()

	target := b.nextReceiver(t)
	if target == nil || !b.assign(e, entry, target) || !b.deliver(target, e) {
		b.forget(e, entry)
		observability.LogEventUnrouted(b.logger, sender.Name(), t.String())
		b.metrics.RecordEventSent(ctx, t.String(), false)
		return nil
	}

	b.metrics.RecordEventSent(ctx, t.String(), true)
	return slot
}

// nextReceiver pops the head of t's rotation and pushes it back to the tail.
func (b *Broker) nextReceiver(t reflect.Type) *Handle {
	b.rotationMu.Lock()
	defer b.rotationMu.Unlock()

	rotation := b.rotations[t]
	if len(rotation) == 0 {
		return nil
	}
	head := rotation[0]
	copy(rotation, rotation[1:])
	rotation[len(rotation)-1] = head
	return head
}

// assign records which worker owns entry. It fails if an Unregister already
// forgot the entry.
func (b *Broker) assign(e AnyEvent, entry *pendingEvent, target *Handle) bool {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()

	if b.pending[e] != entry {
		return false
	}
	entry.assignee = target
	return true
}

func (b *Broker) forget(e AnyEvent, entry *pendingEvent) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()

	if b.pending[e] == entry {
		delete(b.pending, e)
	}
}

// SendBroadcast delivers msg to every current subscriber of its type.
// Subscribers added while the broadcast is in progress may miss it.
func (b *Broker) SendBroadcast(msg Broadcast) {
	b.sendBroadcast(nil, msg)
}

func (b *Broker) sendBroadcast(sender *Handle, msg Broadcast) int {
	if msg == nil {
		return 0
	}
	t := reflect.TypeOf(msg)

	b.listenerMu.RLock()
	targets := b.snapshotListeners(t)
	b.listenerMu.RUnlock()

	if len(targets) == 0 {
		return 0
	}

	delivered := 0
	for _, h := range targets {
		if b.deliver(h, msg) {
			delivered++
		}
	}

	b.logger.Debug("broadcast sent",
		slog.String("sender", sender.Name()),
		slog.String("message_type", t.String()),
		slog.Int("deliveries", delivered),
	)
	b.metrics.RecordBroadcast(context.Background(), t.String(), delivered)
	return delivered
}

// snapshotListeners must be called with listenerMu held.
func (b *Broker) snapshotListeners(t reflect.Type) []*Handle {
	set := b.listeners[t]
	targets := make([]*Handle, 0, len(set))
	for h := range set {
		targets = append(targets, h)
	}
	return targets
}

func (b *Broker) deliver(h *Handle, msg Message) bool {
	b.mailboxMu.RLock()
	mb := b.mailboxes[h]
	b.mailboxMu.RUnlock()

	if mb == nil {
		return false
	}
	return mb.put(msg)
}

// Complete resolves the future of e with result. Completing an event that
// is unknown or already completed does nothing.
func Complete[R any](b *Broker, e Event[R], result R) {
	if e == nil {
		return
	}

	b.pendingMu.Lock()
	entry, ok := b.pending[e]
	if ok {
		delete(b.pending, e)
	}
	b.pendingMu.Unlock()

	if !ok {
		return
	}
	if slot, ok := entry.slot.(*future.Future[R]); ok {
		slot.Resolve(result)
		b.metrics.RecordEventCompleted(context.Background(), entry.typ.String())
	}
}

// PendingCount returns the number of events awaiting completion.
func (b *Broker) PendingCount() int {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	return len(b.pending)
}

// MailboxLen returns the number of messages queued for h, or 0 if h is not
// registered.
func (b *Broker) MailboxLen(h *Handle) int {
	b.mailboxMu.RLock()
	mb := b.mailboxes[h]
	b.mailboxMu.RUnlock()

	if mb == nil {
		return 0
	}
	return mb.size()
}

// AwaitMessage blocks until h's mailbox yields a message.
// It fails with ErrNotRegistered if h has no mailbox, or loses it while
// waiting.
func (b *Broker) AwaitMessage(h *Handle) (Message, error) {
	return b.AwaitMessageContext(context.Background(), h)
}

// AwaitMessageContext is AwaitMessage that also returns ctx.Err() once ctx
// ends.
func (b *Broker) AwaitMessageContext(ctx context.Context, h *Handle) (Message, error) {
	b.mailboxMu.RLock()
	mb := b.mailboxes[h]
	b.mailboxMu.RUnlock()

	if mb == nil {
		return nil, fmt.Errorf("await %s: %w", h, ErrNotRegistered)
	}

	msg, err := mb.take(ctx)
	if err != nil {
		if errors.Is(err, ErrNotRegistered) {
			return nil, fmt.Errorf("await %s: %w", h, err)
		}
		return nil, err
	}
	return msg, nil
}
