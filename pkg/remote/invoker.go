package remote

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrClosed is returned by Invoke after the underlying connection shut down.
var ErrClosed = errors.New("remote connection closed")

// Invoker is the single seam between the oracle and the routing service:
// invoke a named operation with an argument map and obtain the raw result.
// Implementations reach a child process, an HTTP endpoint, or an in-process
// simulation; callers never interpret a failure beyond "this call produced
// no usable result".
type Invoker interface {
	Invoke(ctx context.Context, op string, args map[string]any) (json.RawMessage, error)
}

// InvokerFunc adapts a bare function to the Invoker interface.
type InvokerFunc func(ctx context.Context, op string, args map[string]any) (json.RawMessage, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, op string, args map[string]any) (json.RawMessage, error) {
	return f(ctx, op, args)
}

// WithTimeout bounds each call through inv by d. A non-positive d returns
// inv unchanged.
func WithTimeout(inv Invoker, d time.Duration) Invoker {
	if d <= 0 {
		return inv
	}
	return InvokerFunc(func(ctx context.Context, op string, args map[string]any) (json.RawMessage, error) {
		callCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return inv.Invoke(callCtx, op, args)
	})
}
