package microbus_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/microbus/pkg/microbus"
)

type jobEvent struct {
	microbus.EventBase[int]
	N int
}

type nameEvent struct {
	microbus.EventBase[string]
}

type pingBroadcast struct {
	microbus.BroadcastBase
	Seq int
}

type otherBroadcast struct {
	microbus.BroadcastBase
}

var (
	jobType   = microbus.TypeFor[*jobEvent]()
	nameType  = microbus.TypeFor[*nameEvent]()
	pingType  = microbus.TypeFor[*pingBroadcast]()
	otherType = microbus.TypeFor[*otherBroadcast]()
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBroker(opts ...microbus.Option) *microbus.Broker {
	return microbus.NewBroker(append([]microbus.Option{microbus.WithLogger(quietLogger())}, opts...)...)
}

// startService runs s in the background and waits until its handlers are
// declared. The returned channel yields Run's result.
func startService(t *testing.T, ctx context.Context, s *microbus.Service) <-chan error {
	t.Helper()
	result := make(chan error, 1)
	go func() {
		result <- s.Run(ctx)
	}()

	select {
	case <-s.Ready():
	case err := <-result:
		t.Fatalf("service %s exited during init: %v", s.Name(), err)
	case <-time.After(time.Second):
		t.Fatalf("service %s not ready", s.Name())
	}
	return result
}

func waitResult(t *testing.T, result <-chan error) error {
	t.Helper()
	select {
	case err := <-result:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
		return nil
	}
}

func await(t *testing.T, b *microbus.Broker, h *microbus.Handle) microbus.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := b.AwaitMessageContext(ctx, h)
	require.NoError(t, err)
	return msg
}
