package compile

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// SafeGroup wraps errgroup.Group with panic recovery. A panicking
// goroutine is converted into an error and logged with its stack.
type SafeGroup struct {
	group *errgroup.Group
}

// NewSafeGroup creates a group whose context is canceled when the first
// goroutine fails or panics.
func NewSafeGroup(ctx context.Context) (*SafeGroup, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	return &SafeGroup{group: g}, ctx
}

// Go runs fn in a new goroutine with panic recovery.
func (sg *SafeGroup) Go(fn func() error) {
	sg.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				slogger().Warn("compile: worker panic recovered",
					"panic", r, "stack", string(debug.Stack()))
				err = fmt.Errorf("compile: worker panic: %v", r)
			}
		}()
		return fn()
	})
}

// SetLimit limits the number of active goroutines.
func (sg *SafeGroup) SetLimit(n int) {
	sg.group.SetLimit(n)
}

// Wait blocks until every goroutine has returned and reports the first
// error.
func (sg *SafeGroup) Wait() error {
	return sg.group.Wait()
}
