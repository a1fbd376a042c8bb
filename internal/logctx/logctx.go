// Package logctx carries a logr.Logger through a context.Context, the way
// controller-runtime's log package does for Kubernetes controllers. Here it
// backs plain HTTP request handling instead of a reconcile loop.
package logctx

import (
	"context"

	"github.com/go-logr/logr"
)

type contextKey struct{}

// base is the logger returned by FromContext when none has been attached.
// SetBase installs the process-wide root logger during startup.
var base = logr.Discard()

// SetBase installs the root logger used when a context carries none.
func SetBase(l logr.Logger) {
	base = l
}

// IntoContext returns a copy of ctx carrying l, retrievable via FromContext.
func IntoContext(ctx context.Context, l logr.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger carried by ctx, or the process root logger
// if ctx carries none.
func FromContext(ctx context.Context) logr.Logger {
	if l, ok := ctx.Value(contextKey{}).(logr.Logger); ok {
		return l
	}
	return base
}
