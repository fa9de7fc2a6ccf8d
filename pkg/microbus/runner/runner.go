// Package runner starts a set of microbus services and waits for them.
package runner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Runnable is a service the runner can start. *microbus.Service and types
// embedding it satisfy it.
type Runnable interface {
	Name() string
	Run(ctx context.Context) error
	Ready() <-chan struct{}
	Done() <-chan struct{}
}

// Run starts every service in services, waits until each of them has
// finished initializing, then starts the services in last. It returns once
// all services have stopped.
//
// The first service to fail cancels the context of all the others, and its
// error is returned. If a service in services fails to initialize, last is
// never started.
func Run(ctx context.Context, services []Runnable, last ...Runnable) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, s := range services {
		g.Go(func() error { return s.Run(gctx) })
	}

	if err := awaitReady(gctx, services); err != nil {
		if werr := g.Wait(); werr != nil {
			return werr
		}
		return err
	}

	for _, s := range last {
		g.Go(func() error { return s.Run(gctx) })
	}
	return g.Wait()
}

func awaitReady(ctx context.Context, services []Runnable) error {
	for _, s := range services {
		select {
		case <-s.Ready():
		case <-s.Done():
			// Stopped before becoming ready; Run's error explains why, or
			// a quick InitFunc terminated the service on purpose.
			select {
			case <-s.Ready():
			default:
				return fmt.Errorf("service %s stopped during initialization", s.Name())
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
