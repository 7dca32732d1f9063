// Package moderation implements the pending/approved lifecycle shared by every content kind.
package moderation

import (
	"context"
	"strings"

	"github.com/efraim-memorial/backend/internal/store"
	"go.uber.org/zap"
)

// Policy decides where a submission lands.
type Policy int

const (
	// Review puts submissions in the pending queue.
	Review Policy = iota
	// AutoApprove publishes submissions immediately.
	AutoApprove
)

// Kind describes one content kind to the workflow.
type Kind[T store.Record] struct {
	Name string
	New  func() T
	// Validate rejects items with missing required fields.
	Validate func(T) error
	// Merge copies the editable fields of src onto dst.
	Merge  func(dst, src T)
	Search []store.Field[T]
	Policy Policy
}

// Releaser frees external resources held by a removed item.
type Releaser[T any] interface {
	Release(ctx context.Context, item T) error
}

// ReleaseFunc adapts a function to Releaser.
type ReleaseFunc[T any] func(ctx context.Context, item T) error

func (f ReleaseFunc[T]) Release(ctx context.Context, item T) error { return f(ctx, item) }

type Workflow[T store.Record] struct {
	kind     Kind[T]
	store    store.Store[T]
	releaser Releaser[T]
	logger   *zap.Logger
}

// Option configures a Workflow.
type Option[T store.Record] func(*Workflow[T])

func WithLogger[T store.Record](l *zap.Logger) Option[T] {
	return func(w *Workflow[T]) {
		if l != nil {
			w.logger = l.Named("Moderation").With(zap.String("kind", w.kind.Name))
		}
	}
}

func WithReleaser[T store.Record](r Releaser[T]) Option[T] {
	return func(w *Workflow[T]) { w.releaser = r }
}

func New[T store.Record](kind Kind[T], st store.Store[T], opts ...Option[T]) *Workflow[T] {
	w := &Workflow[T]{kind: kind, store: st, logger: zap.NewNop()}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *Workflow[T]) Name() string { return w.kind.Name }

// Submit validates item and stores it according to the kind's policy.
func (w *Workflow[T]) Submit(ctx context.Context, item T) (T, error) {
	state := store.Pending
	if w.kind.Policy == AutoApprove {
		state = store.Approved
	}
	return w.SubmitAs(ctx, state, item)
}

// SubmitAs validates item and stores it directly in state.
func (w *Workflow[T]) SubmitAs(ctx context.Context, state store.State, item T) (T, error) {
	if w.kind.Validate != nil {
		if err := w.kind.Validate(item); err != nil {
			var zero T
			return zero, err
		}
	}
	created, err := w.store.Create(ctx, state, item)
	if err != nil {
		return created, err
	}
	w.logger.Debug("submitted", zap.Stringer("state", state), zap.Int64("id", created.EntryID()))
	return created, nil
}

// Approve moves a pending item to the approved list with its fields untouched.
func (w *Workflow[T]) Approve(ctx context.Context, h store.Handle) (T, error) {
	item, err := w.store.Move(ctx, store.Pending, store.Approved, h)
	if err != nil {
		return item, err
	}
	w.logger.Info("approved", zap.Int64("handle", int64(h)), zap.Int64("id", item.EntryID()))
	return item, nil
}

// Delete removes an item from the list of state, then releases its external resources.
// A release failure is logged and never undoes or fails the removal.
func (w *Workflow[T]) Delete(ctx context.Context, state store.State, h store.Handle) (T, error) {
	item, err := w.store.Delete(ctx, state, h)
	if err != nil {
		return item, err
	}
	w.logger.Info("deleted", zap.Stringer("state", state), zap.Int64("handle", int64(h)))
	w.release(ctx, item)
	return item, nil
}

func (w *Workflow[T]) release(ctx context.Context, item T) {
	if w.releaser == nil {
		return
	}
	if err := w.releaser.Release(ctx, item); err != nil {
		w.logger.Warn("release external media failed", zap.Error(err))
	}
}

// Edit overwrites the editable fields of a pending item in place.
func (w *Workflow[T]) Edit(ctx context.Context, h store.Handle, patch T) (T, error) {
	current, err := w.store.Get(ctx, store.Pending, h)
	if err != nil {
		return current, err
	}
	if w.kind.Merge != nil {
		w.kind.Merge(current, patch)
	}
	if w.kind.Validate != nil {
		if err := w.kind.Validate(current); err != nil {
			var zero T
			return zero, err
		}
	}
	return w.store.Update(ctx, store.Pending, h, current)
}

func (w *Workflow[T]) Get(ctx context.Context, state store.State, h store.Handle) (T, error) {
	return w.store.Get(ctx, state, h)
}

// List returns every item in state, optionally narrowed by equality matches.
func (w *Workflow[T]) List(ctx context.Context, state store.State, matches ...store.Match[T]) ([]T, error) {
	return w.store.List(ctx, state, store.Filter[T]{Equal: matches})
}

// Search returns the items in state whose search fields contain query, ignoring case.
// A blank query matches nothing.
func (w *Workflow[T]) Search(ctx context.Context, state store.State, query string, matches ...store.Match[T]) ([]T, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []T{}, nil
	}
	return w.store.List(ctx, state, store.Filter[T]{Query: query, Search: w.kind.Search, Equal: matches})
}
