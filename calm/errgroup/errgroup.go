// Package errgroup wraps the standard errgroup capturing panics in the go routines as errors instead.
package errgroup

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zircuit-labs/zkr-chromelogger/calm"
)

// Group is an errgroup.Group whose goroutines cannot crash the process.
type Group struct {
	group *errgroup.Group
}

// WithContext returns a Group and a context cancelled when the first goroutine fails.
func WithContext(ctx context.Context) (*Group, context.Context) {
	group, ctx := errgroup.WithContext(ctx)
	return &Group{group: group}, ctx
}

// New returns an empty Group.
func New() *Group {
	return &Group{group: new(errgroup.Group)}
}

// Go runs f in a new goroutine; a panic in f is returned from Wait as an error.
func (g *Group) Go(f func() error) {
	g.group.Go(func() error {
		return calm.Unpanic(f)
	})
}

// Wait blocks until all goroutines have returned and reports the first error.
func (g *Group) Wait() error {
	return g.group.Wait()
}
