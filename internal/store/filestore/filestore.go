// Package filestore keeps each content kind as a pair of pretty-printed JSON arrays,
// one file per moderation state. Items are addressed by their position in the array.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/efraim-memorial/backend/internal/pkg/apperr"
	"github.com/efraim-memorial/backend/internal/store"
)

// Files names the JSON file backing each state, relative to the data directory.
type Files struct {
	Pending  string
	Approved string
}

type Options struct {
	// Lock serializes every read-modify-write cycle of the kind. Without it concurrent
	// mutations race and the last writer wins.
	Lock bool
	Now  func() time.Time
}

type Store[T store.Record] struct {
	dir   string
	files Files
	mu    *sync.Mutex
	now   func() time.Time

	// beforeCommit runs between the read and the write of Move.
	beforeCommit func()
}

var _ store.Store[store.Record] = (*Store[store.Record])(nil)

func New[T store.Record](dir string, files Files, opts Options) *Store[T] {
	s := &Store[T]{dir: dir, files: files, now: opts.Now}
	if opts.Lock {
		s.mu = &sync.Mutex{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Store[T]) lock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store[T]) path(state store.State) string {
	if state == store.Approved {
		return filepath.Join(s.dir, s.files.Approved)
	}
	return filepath.Join(s.dir, s.files.Pending)
}

func (s *Store[T]) Create(_ context.Context, state store.State, item T) (T, error) {
	defer s.lock()()

	items, err := s.load(state)
	if err != nil {
		return item, err
	}
	item.SetApproved(state == store.Approved)
	if item.Created().IsZero() {
		item.SetCreated(s.now().UTC())
	}
	items = append(items, item)
	if err := s.save(state, items); err != nil {
		return item, err
	}
	return item, nil
}

func (s *Store[T]) List(_ context.Context, state store.State, f store.Filter[T]) ([]T, error) {
	items, err := s.load(state)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if f.Matches(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *Store[T]) Get(_ context.Context, state store.State, h store.Handle) (T, error) {
	var zero T
	items, err := s.load(state)
	if err != nil {
		return zero, err
	}
	if !inRange(h, len(items)) {
		return zero, outOfRange(h)
	}
	return items[h], nil
}

func (s *Store[T]) Update(_ context.Context, state store.State, h store.Handle, item T) (T, error) {
	defer s.lock()()

	var zero T
	items, err := s.load(state)
	if err != nil {
		return zero, err
	}
	if !inRange(h, len(items)) {
		return zero, outOfRange(h)
	}
	if item.Created().IsZero() {
		item.SetCreated(items[h].Created())
	}
	item.SetApproved(state == store.Approved)
	items[h] = item
	if err := s.save(state, items); err != nil {
		return zero, err
	}
	return item, nil
}

func (s *Store[T]) Delete(_ context.Context, state store.State, h store.Handle) (T, error) {
	defer s.lock()()

	var zero T
	items, err := s.load(state)
	if err != nil {
		return zero, err
	}
	if !inRange(h, len(items)) {
		return zero, outOfRange(h)
	}
	removed := items[h]
	items = append(items[:h], items[h+1:]...)
	if err := s.save(state, items); err != nil {
		return zero, err
	}
	return removed, nil
}

// Move removes the item at h from one list and appends it to the other. The source file
// is rewritten first, so a crash in between can lose the item but never duplicate it.
func (s *Store[T]) Move(_ context.Context, from, to store.State, h store.Handle) (T, error) {
	defer s.lock()()

	var zero T
	src, err := s.load(from)
	if err != nil {
		return zero, err
	}
	if !inRange(h, len(src)) {
		return zero, outOfRange(h)
	}
	dst, err := s.load(to)
	if err != nil {
		return zero, err
	}

	item := src[h]
	src = append(src[:h], src[h+1:]...)
	item.SetApproved(to == store.Approved)
	dst = append(dst, item)

	if s.beforeCommit != nil {
		s.beforeCommit()
	}
	if err := s.save(from, src); err != nil {
		return zero, err
	}
	if err := s.save(to, dst); err != nil {
		return zero, err
	}
	item.SetEntryID(int64(len(dst) - 1))
	return item, nil
}

func (s *Store[T]) load(state store.State) ([]T, error) {
	p := s.path(state)
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	for i, item := range items {
		item.SetEntryID(int64(i))
		item.SetApproved(state == store.Approved)
	}
	return items, nil
}

func (s *Store[T]) save(state store.State, items []T) error {
	for i, item := range items {
		item.SetEntryID(int64(i))
	}
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path(state), data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func inRange(h store.Handle, n int) bool {
	return h >= 0 && int64(h) < int64(n)
}

func outOfRange(h store.Handle) error {
	return apperr.New(apperr.CodeInvalidIndex, fmt.Sprintf("Invalid index: %d", h))
}
