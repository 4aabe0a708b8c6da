// Package store defines the contracts the engine consumes from the
// relational storage layer: an ordered enumerator for batch reindexing and
// an explicit change-notification dispatcher for write-path sync.
package store

import "context"

// Enumerator streams all instances of a kind in a stable order (primary
// key ascending) so interrupted runs can resume from a logged offset.
// fn returning an error stops the enumeration.
type Enumerator interface {
	EnumerateKind(ctx context.Context, kind string, fn func(entity any) error) error
}

// ChangeListener receives entity mutations. The storage layer invokes it
// synchronously after a successful write; implementations must never
// propagate failures back into the triggering mutation.
type ChangeListener interface {
	EntitySaved(ctx context.Context, kind string, entity any)
	EntityDeleted(ctx context.Context, kind, nativeID string)
}

// Dispatcher fans entity change notifications out to registered listeners.
// An explicit dispatch table instead of hidden global signals: the
// dependency between storage and sync is visible and testable.
type Dispatcher struct {
	listeners []ChangeListener
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register adds a listener. Called during wiring, before any dispatch;
// not safe to call concurrently with dispatches.
func (d *Dispatcher) Register(l ChangeListener) {
	d.listeners = append(d.listeners, l)
}

// EntitySaved notifies all listeners of a create or update.
func (d *Dispatcher) EntitySaved(ctx context.Context, kind string, entity any) {
	for _, l := range d.listeners {
		l.EntitySaved(ctx, kind, entity)
	}
}

// EntityDeleted notifies all listeners of a delete.
func (d *Dispatcher) EntityDeleted(ctx context.Context, kind, nativeID string) {
	for _, l := range d.listeners {
		l.EntityDeleted(ctx, kind, nativeID)
	}
}
