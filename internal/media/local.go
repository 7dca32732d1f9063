package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/efraim-memorial/backend/internal/pkg/apperr"
)

// Local writes media under a directory that the server exposes at baseURL.
type Local struct {
	dir     string
	baseURL string
}

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Local{dir: dir, baseURL: "/" + strings.Trim(baseURL, "/")}, nil
}

func (h *Local) Name() string { return "local" }

func (h *Local) Dir() string { return h.dir }

func (h *Local) Upload(_ context.Context, obj Object) (Asset, error) {
	target, err := h.resolve(obj.Key)
	if err != nil {
		return Asset{}, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Asset{}, err
	}
	if err := os.WriteFile(target, obj.Data, 0o644); err != nil {
		return Asset{}, fmt.Errorf("write %s: %w", obj.Key, err)
	}
	return Asset{URL: h.baseURL + "/" + obj.Key, PublicID: obj.Key}, nil
}

func (h *Local) Delete(_ context.Context, publicID string) error {
	target, err := h.resolve(publicID)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Usage sums the files stored under the directory.
func (h *Local) Usage(_ context.Context) (map[string]interface{}, error) {
	var files, size int64
	err := filepath.WalkDir(h.dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files++
		size += info.Size()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"provider": h.Name(),
		"objects":  files,
		"bytes":    size,
	}, nil
}

func (h *Local) resolve(key string) (string, error) {
	return ResolveWithin(h.dir, key)
}

// ResolveWithin joins name onto dir and rejects names that escape it.
func ResolveWithin(dir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimSpace(name)))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", apperr.Validation("invalid media key %q", name)
	}
	return filepath.Join(dir, clean), nil
}
