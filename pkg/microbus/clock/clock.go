// Package clock provides the time service that paces a microbus
// application, and the broadcasts that start and stop it.
package clock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/randalmurphal/microbus/pkg/microbus"
)

// ErrInvalidSchedule indicates a non-positive tick count or interval.
var ErrInvalidSchedule = errors.New("clock needs a positive interval and tick count")

// TickBroadcast announces that application time advanced to Tick.
// Ticks start at 1.
type TickBroadcast struct {
	microbus.BroadcastBase
	Tick int
}

// TerminatedBroadcast announces the end of the run. Every service
// declared with HandleStop terminates on receiving it.
type TerminatedBroadcast struct {
	microbus.BroadcastBase
	Sender string
}

// HandleStop declares the standard stop handlers on s: the service
// terminates on TerminatedBroadcast and on CrashedBroadcast. Each onStop
// function runs on s's goroutine just before it terminates.
// Call it from the service's InitFunc.
func HandleStop(s *microbus.Service, onStop ...func()) error {
	stop := func() {
		for _, fn := range onStop {
			fn()
		}
		s.Terminate()
	}
	if err := microbus.OnBroadcast(s, func(context.Context, *TerminatedBroadcast) error {
		stop()
		return nil
	}); err != nil {
		return err
	}
	return microbus.OnBroadcast(s, func(_ context.Context, c *microbus.CrashedBroadcast) error {
		s.Logger().Info("stopping after crash", slog.String("crashed", c.Sender))
		stop()
		return nil
	})
}

// TimeService broadcasts ticks 1..n spaced by a fixed interval, then
// broadcasts TerminatedBroadcast and stops. It stops early when any
// service crashes.
type TimeService struct {
	*microbus.Service

	interval time.Duration
	ticks    int

	// timer is only touched from the service's handlers.
	timer *time.Timer
}

// NewTimeService creates a time service on broker. Start it after every
// service that listens for ticks is ready, or those services miss the
// first ticks.
func NewTimeService(broker *microbus.Broker, interval time.Duration, ticks int, opts ...microbus.ServiceOption) *TimeService {
	ts := &TimeService{interval: interval, ticks: ticks}
	ts.Service = microbus.NewService("time", broker, ts.initialize, opts...)
	return ts
}

func (ts *TimeService) initialize(s *microbus.Service) error {
	if ts.interval <= 0 || ts.ticks <= 0 {
		return ErrInvalidSchedule
	}
	if err := microbus.OnBroadcast(s, ts.onTick); err != nil {
		return err
	}
	if err := HandleStop(s, ts.stopTimer); err != nil {
		return err
	}

	s.SendBroadcast(&TickBroadcast{Tick: 1})
	return nil
}

// onTick schedules whatever follows t: the next tick, or the end of the run
// one interval after the last tick.
func (ts *TimeService) onTick(_ context.Context, t *TickBroadcast) error {
	var next microbus.Broadcast = &TickBroadcast{Tick: t.Tick + 1}
	if t.Tick >= ts.ticks {
		next = &TerminatedBroadcast{Sender: ts.Name()}
	}

	ts.timer = time.AfterFunc(ts.interval, func() {
		select {
		case <-ts.Done():
			return
		default:
		}
		ts.SendBroadcast(next)
	})
	return nil
}

func (ts *TimeService) stopTimer() {
	if ts.timer != nil {
		ts.timer.Stop()
	}
}
