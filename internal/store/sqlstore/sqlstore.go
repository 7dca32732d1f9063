// Package sqlstore implements the content store on a gorm table per kind, with the
// moderation state held in the approved column.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/efraim-memorial/backend/internal/pkg/apperr"
	"github.com/efraim-memorial/backend/internal/store"
	"gorm.io/gorm"
)

type Store[T store.Record] struct {
	db      *gorm.DB
	newItem func() T
	kind    string
}

// New returns a store for the table behind T. newItem must return a fresh zero model.
func New[T store.Record](db *gorm.DB, kind string, newItem func() T) *Store[T] {
	return &Store[T]{db: db, newItem: newItem, kind: kind}
}

func (s *Store[T]) Create(ctx context.Context, state store.State, item T) (T, error) {
	item.SetEntryID(0)
	item.SetApproved(state == store.Approved)
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return item, fmt.Errorf("create %s: %w", s.kind, err)
	}
	return item, nil
}

func (s *Store[T]) List(ctx context.Context, state store.State, f store.Filter[T]) ([]T, error) {
	tx := s.db.WithContext(ctx).Model(s.newItem()).
		Where("approved = ?", state == store.Approved)
	for _, m := range f.Equal {
		tx = tx.Where(m.Field.Column+" = ?", m.Value)
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" && len(f.Search) > 0 {
		clauses := make([]string, 0, len(f.Search))
		args := make([]interface{}, 0, len(f.Search))
		for _, field := range f.Search {
			clauses = append(clauses, "LOWER("+field.Column+") LIKE ?")
			args = append(args, "%"+q+"%")
		}
		tx = tx.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}

	items := []T{}
	if err := tx.Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", s.kind, err)
	}
	return items, nil
}

func (s *Store[T]) Get(ctx context.Context, state store.State, h store.Handle) (T, error) {
	item := s.newItem()
	err := s.db.WithContext(ctx).
		Where("id = ? AND approved = ?", int64(h), state == store.Approved).
		First(item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var zero T
		return zero, s.notFound(h)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("get %s: %w", s.kind, err)
	}
	return item, nil
}

func (s *Store[T]) Update(ctx context.Context, state store.State, h store.Handle, item T) (T, error) {
	existing, err := s.Get(ctx, state, h)
	if err != nil {
		var zero T
		return zero, err
	}
	item.SetEntryID(existing.EntryID())
	item.SetApproved(existing.IsApproved())
	if item.Created().IsZero() {
		item.SetCreated(existing.Created())
	}
	if err := s.db.WithContext(ctx).Save(item).Error; err != nil {
		var zero T
		return zero, fmt.Errorf("update %s: %w", s.kind, err)
	}
	return item, nil
}

func (s *Store[T]) Delete(ctx context.Context, state store.State, h store.Handle) (T, error) {
	var zero T
	item, err := s.Get(ctx, state, h)
	if err != nil {
		return zero, err
	}
	res := s.db.WithContext(ctx).
		Where("id = ? AND approved = ?", int64(h), state == store.Approved).
		Delete(s.newItem())
	if res.Error != nil {
		return zero, fmt.Errorf("delete %s: %w", s.kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return zero, s.notFound(h)
	}
	return item, nil
}

// Move flips the approved column in one statement guarded on the current state, so two
// concurrent approvals of the same row cannot both succeed.
func (s *Store[T]) Move(ctx context.Context, from, to store.State, h store.Handle) (T, error) {
	var zero T
	res := s.db.WithContext(ctx).Model(s.newItem()).
		Where("id = ? AND approved = ?", int64(h), from == store.Approved).
		Update("approved", to == store.Approved)
	if res.Error != nil {
		return zero, fmt.Errorf("move %s: %w", s.kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return zero, s.notFound(h)
	}
	return s.Get(ctx, to, h)
}

func (s *Store[T]) notFound(h store.Handle) error {
	return apperr.NotFound(fmt.Sprintf("%s %d not found", s.kind, h))
}
