package stats

import (
	"context"

	"github.com/randalmurphal/microbus/pkg/microbus"
	"github.com/randalmurphal/microbus/pkg/microbus/clock"
	"github.com/randalmurphal/microbus/pkg/microbus/future"
)

// CountBroadcast adds Delta to the counter called Name.
type CountBroadcast struct {
	microbus.BroadcastBase
	Name  string
	Delta int64
}

// SnapshotEvent asks a collector for a Snapshot of its folder.
type SnapshotEvent struct {
	microbus.EventBase[Snapshot]
}

// NewCollector creates the service that owns folder's updates. It counts
// ticks, applies CountBroadcasts, answers SnapshotEvents and records the
// first crash. It stops on TerminatedBroadcast and CrashedBroadcast.
//
// Its mailbox is FIFO, so every CountBroadcast sent before the stop
// broadcast is counted. Counts sent after it are dropped with the mailbox:
// work still in flight when the run ends is not reported. The time service
// broadcasts TerminatedBroadcast one full tick interval after the last
// tick, which leaves handlers of the last tick that long to report.
func NewCollector(broker *microbus.Broker, folder *Folder, opts ...microbus.ServiceOption) *microbus.Service {
	return microbus.NewService("stats", broker, func(s *microbus.Service) error {
		if err := microbus.OnBroadcast(s, func(context.Context, *clock.TickBroadcast) error {
			folder.IncrementRuntime()
			return nil
		}); err != nil {
			return err
		}

		if err := microbus.OnBroadcast(s, func(_ context.Context, c *CountBroadcast) error {
			folder.Add(c.Name, c.Delta)
			return nil
		}); err != nil {
			return err
		}

		if err := microbus.OnEvent(s, func(_ context.Context, e *SnapshotEvent) error {
			microbus.Complete[Snapshot](broker, e, folder.Snapshot())
			return nil
		}); err != nil {
			return err
		}

		if err := microbus.OnBroadcast(s, func(_ context.Context, c *microbus.CrashedBroadcast) error {
			folder.RecordCrash(Crash{Service: c.Sender, Error: c.Error})
			s.Terminate()
			return nil
		}); err != nil {
			return err
		}

		return microbus.OnBroadcast(s, func(context.Context, *clock.TerminatedBroadcast) error {
			s.Terminate()
			return nil
		})
	}, opts...)
}

// Count broadcasts a counter update on behalf of s.
func Count(s *microbus.Service, name string, delta int64) {
	s.SendBroadcast(&CountBroadcast{Name: name, Delta: delta})
}

// Request asks the running collector for a snapshot. It returns nil when no
// collector is running.
func Request(broker *microbus.Broker) *future.Future[Snapshot] {
	return microbus.SendEvent[Snapshot](broker, &SnapshotEvent{})
}
