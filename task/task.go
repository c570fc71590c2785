// Package task runs long-lived background work, such as an HTTP server, under a shared lifetime.
package task

import "context"

// Task is a unit of background work.
type Task interface {
	// Run blocks until ctx is cancelled or the work cannot continue.
	Run(ctx context.Context) error

	// Name identifies the task in logs.
	Name() string
}

type funcTask struct {
	name string
	run  func(context.Context) error
}

func (t funcTask) Run(ctx context.Context) error {
	return t.run(ctx)
}

func (t funcTask) Name() string {
	return t.name
}

// Func adapts a function to the Task interface.
func Func(name string, run func(context.Context) error) Task {
	return funcTask{name: name, run: run}
}
