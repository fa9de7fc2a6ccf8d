/*
Package microbus is an in-process message-passing runtime: a Broker that
routes events and broadcasts between independently running services, and
the Service type that implements the worker side of the contract.

# Messages

Messages are pointers to structs that embed a marker. Events expect one
result and go to a single subscriber; broadcasts expect none and go to all
subscribers.

	type Detect struct {
	    microbus.EventBase[[]Object]
	    Frame int
	}

	type Tick struct {
	    microbus.BroadcastBase
	    N int
	}

Messages are routed by concrete type and must not be modified once sent.

# Broker

A Broker is created explicitly and shared by every service that should
talk to each other. Independent brokers never see each other's traffic.

	broker := microbus.NewBroker(
	    microbus.WithLogger(logger),
	    microbus.WithMetrics(observability.NewMetricsRecorder()),
	)

Events are distributed round-robin across the services subscribed to
their type. SendEvent returns a future the caller may wait on, or nil when
nobody is listening:

	f := microbus.SendEvent[[]Object](broker, &Detect{Frame: 4})
	if f == nil {
	    // no detector running
	}
	objects, ok := f.GetTimeout(time.Second)

Broadcasts reach every service subscribed at the time of sending.

# Services

A Service declares its handlers in an InitFunc and then processes its
mailbox one message at a time on its own goroutine:

	svc := microbus.NewService("detector", broker, func(s *microbus.Service) error {
	    return microbus.OnEvent(s, func(ctx context.Context, e *Detect) error {
	        microbus.Complete(s.Broker(), e, detect(e.Frame))
	        return nil
	    })
	})
	go svc.Run(ctx)

Handlers answer events by calling Complete; returning from the handler
does not. A handler that returns an error or panics crashes its service:
a CrashedBroadcast is sent to interested services and Run returns a
*HandlerError.

Terminate is cooperative. The loop checks it between messages, so a
service blocked on an empty mailbox stops only after its next message or
when the context passed to Run ends.

# Abandoned results

When the service an event was dispatched to unregisters before answering,
the broker forgets the event and its future is never resolved. Get would
block forever in that case; callers that cannot rule it out should use
GetTimeout or Wait.
*/
package microbus
