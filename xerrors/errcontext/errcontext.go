// Package errcontext attaches slog attributes to errors.
package errcontext

import (
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/zircuit-labs/zkr-chromelogger/xerrors"
)

// Context holds the attributes attached to an error.
type Context map[string]slog.Value

// Flatten converts c to slice of slog.Attr sorted by key.
func (c Context) Flatten() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(c))
	for _, key := range slices.Sorted(maps.Keys(c)) {
		attrs = append(attrs, slog.Attr{Key: key, Value: c[key]})
	}
	return attrs
}

// Map converts c into plain values, suitable for JSON encoding.
func (c Context) Map() map[string]any {
	out := make(map[string]any, len(c))
	for key, value := range c {
		out[key] = value.Resolve().Any()
	}
	return out
}

// LogValue implements slog.LogValuer for Context.
func (c Context) LogValue() slog.Value {
	if len(c) == 0 {
		return slog.Value{}
	}

	attrs := c.Flatten()
	return slog.GroupValue(attrs...)
}

// Add wraps the given error with log attributes for greater context.
// If the error already has context, the new context replaces any existing keys (last-entry-wins)
// and the error wrapped again with the new context.
// For joined errors, the context is applied to each individual error.
func Add(err error, context ...slog.Attr) error {
	if err == nil {
		return nil
	}

	if joinedErrors := xerrors.Unjoin(err); len(joinedErrors) > 1 {
		contextualizedErrors := make([]error, len(joinedErrors))
		for i, e := range joinedErrors {
			contextualizedErrors[i] = Add(e, context...) // Recursive call to preserve structure
		}
		return errors.Join(contextualizedErrors...)
	}

	return addContextToSingleError(err, context...)
}

// addContextToSingleError adds context to a single error with last-entry-wins behavior
func addContextToSingleError(err error, context ...slog.Attr) error {
	var newContext Context

	if oldAttrs := Get(err); oldAttrs != nil {
		newContext = maps.Clone(oldAttrs)
	} else {
		newContext = make(Context, len(context))
	}

	for _, attr := range context {
		newContext[attr.Key] = attr.Value
	}

	return xerrors.Extend(newContext, err)
}

// Get returns the newest Context map attached to the given error.
// Only the newest context is returned.
func Get(err error) Context {
	if err == nil {
		return nil
	}

	if context, ok := xerrors.Extract[Context](err); ok {
		return context
	}
	return nil
}
