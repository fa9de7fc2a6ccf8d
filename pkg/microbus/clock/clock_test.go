package clock_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/microbus/pkg/microbus"
	"github.com/randalmurphal/microbus/pkg/microbus/clock"
)

func newBroker() *microbus.Broker {
	return microbus.NewBroker(microbus.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// tickRecorder collects ticks until the run ends.
type tickRecorder struct {
	mu      sync.Mutex
	ticks   []int
	stopped bool
}

func (r *tickRecorder) service(b *microbus.Broker, failOn int) *microbus.Service {
	return microbus.NewService("listener", b, func(s *microbus.Service) error {
		if err := microbus.OnBroadcast(s, func(_ context.Context, t *clock.TickBroadcast) error {
			r.mu.Lock()
			r.ticks = append(r.ticks, t.Tick)
			r.mu.Unlock()
			if t.Tick == failOn {
				return errors.New("sensor failure")
			}
			return nil
		}); err != nil {
			return err
		}
		return clock.HandleStop(s, func() {
			r.mu.Lock()
			r.stopped = true
			r.mu.Unlock()
		})
	})
}

func run(t *testing.T, s interface {
	Run(context.Context) error
	Ready() <-chan struct{}
}) <-chan error {
	t.Helper()
	result := make(chan error, 1)
	go func() { result <- s.Run(context.Background()) }()
	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("service not ready")
	}
	return result
}

func wait(t *testing.T, result <-chan error) error {
	t.Helper()
	select {
	case err := <-result:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
		return nil
	}
}

func TestTimeService_TicksThenTerminates(t *testing.T) {
	b := newBroker()
	rec := &tickRecorder{}
	listener := run(t, rec.service(b, -1))

	ts := clock.NewTimeService(b, 5*time.Millisecond, 4)
	start := time.Now()
	timeResult := run(t, ts)

	require.NoError(t, wait(t, listener))
	require.NoError(t, wait(t, timeResult))

	assert.Equal(t, []int{1, 2, 3, 4}, rec.ticks)
	assert.True(t, rec.stopped)
	assert.GreaterOrEqual(t, time.Since(start), 4*5*time.Millisecond)
	assert.Equal(t, microbus.StateTerminated, ts.State())
}

func TestTimeService_StopsOnCrash(t *testing.T) {
	b := newBroker()
	rec := &tickRecorder{}
	listener := run(t, rec.service(b, 2))

	ts := clock.NewTimeService(b, 5*time.Millisecond, 1000)
	timeResult := run(t, ts)

	var herr *microbus.HandlerError
	assert.ErrorAs(t, wait(t, listener), &herr)
	require.NoError(t, wait(t, timeResult))
	assert.Equal(t, []int{1, 2}, rec.ticks)
}

func TestTimeService_InvalidSchedule(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		ticks    int
	}{
		{"zero ticks", time.Millisecond, 0},
		{"zero interval", 0, 3},
		{"negative interval", -time.Second, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := clock.NewTimeService(newBroker(), tt.interval, tt.ticks)
			err := ts.Run(context.Background())
			assert.ErrorIs(t, err, clock.ErrInvalidSchedule)
		})
	}
}

func TestHandleStop_Terminated(t *testing.T) {
	b := newBroker()
	var calls []string
	s := microbus.NewService("stoppable", b, func(s *microbus.Service) error {
		return clock.HandleStop(s,
			func() { calls = append(calls, "first") },
			func() { calls = append(calls, "second") },
		)
	})
	result := run(t, s)

	b.SendBroadcast(&clock.TerminatedBroadcast{Sender: "test"})

	require.NoError(t, wait(t, result))
	assert.Equal(t, []string{"first", "second"}, calls)
}
