// Package store defines the content store contract shared by the flat-file and SQL backends.
package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/pkg/apperr"
)

// State is the moderation state of an item. An item is always in exactly one state.
type State int

const (
	Pending State = iota
	Approved
)

func (s State) String() string {
	if s == Approved {
		return "approved"
	}
	return "pending"
}

// Handle addresses an item inside one state's list. The file backend reads it as a
// position, the SQL backend as a surrogate id.
type Handle int64

// ParseHandle parses a route parameter into a Handle.
func ParseHandle(raw string) (Handle, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return 0, apperr.InvalidIndex(raw)
	}
	return Handle(n), nil
}

// Record is implemented by pointers to every moderated model (via models.Entry).
type Record interface {
	EntryID() int64
	SetEntryID(id int64)
	IsApproved() bool
	SetApproved(approved bool)
	Created() time.Time
	SetCreated(t time.Time)
}

// Field names one searchable/filterable text attribute of T for both backends.
type Field[T any] struct {
	Column string
	Value  func(T) string
}

// Match restricts a listing to items whose field equals Value.
type Match[T any] struct {
	Field Field[T]
	Value string
}

// Filter narrows a listing. Query is matched case-insensitively as a substring of any
// Search field. An empty filter returns the whole list.
type Filter[T any] struct {
	Query  string
	Search []Field[T]
	Equal  []Match[T]
}

// Matches applies the filter in memory.
func (f Filter[T]) Matches(item T) bool {
	for _, m := range f.Equal {
		if m.Field.Value(item) != m.Value {
			return false
		}
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" || len(f.Search) == 0 {
		return true
	}
	for _, field := range f.Search {
		if strings.Contains(strings.ToLower(field.Value(item)), q) {
			return true
		}
	}
	return false
}

// Store persists items of one content kind. Every mutation is durable before it returns.
type Store[T Record] interface {
	Create(ctx context.Context, state State, item T) (T, error)
	List(ctx context.Context, state State, f Filter[T]) ([]T, error)
	Get(ctx context.Context, state State, h Handle) (T, error)
	Update(ctx context.Context, state State, h Handle, item T) (T, error)
	Delete(ctx context.Context, state State, h Handle) (T, error)
	// Move transfers one item between states as a single transition.
	Move(ctx context.Context, from, to State, h Handle) (T, error)
}

// SlotStore persists the fixed static-gallery slots.
type SlotStore interface {
	List(ctx context.Context) ([]models.StaticSlot, error)
	// Put overwrites a slot and returns its previous occupant, if any.
	Put(ctx context.Context, slot models.StaticSlot) (*models.StaticSlot, error)
}

