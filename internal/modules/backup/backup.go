// Package backup exports every content list as a ZIP of mongodump-style BSON files.
package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/efraim-memorial/backend/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	backupFormat        = "memorial-backup"
	backupFormatVersion = 1
	backupDBDir         = "db"
	backupManifestFile  = "manifest.json"
)

// Source produces the rows of one exported collection.
type Source struct {
	Name string
	Dump func(ctx context.Context) (interface{}, error)
}

type lister[T any] interface {
	List(ctx context.Context, state store.State, matches ...store.Match[T]) ([]T, error)
}

// ListSource exports the list of state from a moderation workflow as <kind>_<state>.
func ListSource[T store.Record](kind string, wf lister[T], state store.State) Source {
	return Source{
		Name: kind + "_" + state.String(),
		Dump: func(ctx context.Context) (interface{}, error) {
			return wf.List(ctx, state)
		},
	}
}

// SlotSource exports the static gallery slots.
func SlotSource(name string, slots store.SlotStore) Source {
	return Source{
		Name: name,
		Dump: func(ctx context.Context) (interface{}, error) {
			return slots.List(ctx)
		},
	}
}

type manifest struct {
	Format      string    `json:"format"`
	Version     int       `json:"version"`
	Storage     string    `json:"storage"`
	CreatedAt   time.Time `json:"created_at"`
	Collections []string  `json:"collections"`
}

type Service struct {
	dir     string
	storage string
	sources []Source
	now     func() time.Time
	logger  *zap.Logger
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("Backup")
		}
	}
}

// NewService writes archives to dir. storage names the active storage mode in the manifest.
func NewService(dir, storage string, sources []Source, opts ...Option) *Service {
	s := &Service{dir: dir, storage: storage, sources: sources, now: time.Now, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Item struct {
	Filename string `json:"filename"`
	Size     string `json:"size"`
}

// List returns the archives in the backup directory, newest first.
func (s *Service) List() ([]Item, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, err
	}
	items := []Item{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, Item{Filename: e.Name(), Size: formatSize(info.Size())})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Filename > items[j].Filename })
	return items, nil
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

// Create builds an archive, stores it in the backup directory and returns its name and bytes.
func (s *Service) Create(ctx context.Context) (string, []byte, error) {
	now := s.now()
	buf, err := s.archive(ctx, now)
	if err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", nil, err
	}
	filename := fmt.Sprintf("backup-%s.zip", now.Format("2006-01-02T15-04-05"))
	if err := os.WriteFile(filepath.Join(s.dir, filename), buf.Bytes(), 0o644); err != nil {
		return "", nil, err
	}
	s.logger.Info("backup created", zap.String("file", filename), zap.Int("bytes", buf.Len()))
	return filename, buf.Bytes(), nil
}

// Open reads a stored archive. Names outside the backup directory are rejected.
func (s *Service) Open(name string) ([]byte, error) {
	filename, ok := cleanName(name)
	if !ok {
		return nil, errInvalidName
	}
	return os.ReadFile(filepath.Join(s.dir, filename))
}

func (s *Service) Remove(name string) error {
	filename, ok := cleanName(name)
	if !ok {
		return errInvalidName
	}
	err := os.Remove(filepath.Join(s.dir, filename))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Prune removes all but the newest keep archives and returns how many were removed.
// A non-positive keep removes nothing.
func (s *Service) Prune(keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	items, err := s.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, item := range items[min(keep, len(items)):] {
		if err := os.Remove(filepath.Join(s.dir, item.Filename)); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Job creates an archive and prunes down to keep. It runs as the scheduled backup task.
func (s *Service) Job(keep int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if _, _, err := s.Create(ctx); err != nil {
			return err
		}
		removed, err := s.Prune(keep)
		if removed > 0 {
			s.logger.Info("old backups pruned", zap.Int("removed", removed), zap.Int("keep", keep))
		}
		return err
	}
}

func cleanName(name string) (string, bool) {
	filename := filepath.Base(strings.TrimSpace(name))
	if filename == "." || filename == "/" || !strings.HasSuffix(filename, ".zip") {
		return "", false
	}
	return filename, true
}

func (s *Service) archive(ctx context.Context, now time.Time) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	exported := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		data, err := src.Dump(ctx)
		if err != nil {
			return nil, fmt.Errorf("dump %s: %w", src.Name, err)
		}
		rows, err := toRows(data)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", src.Name, err)
		}
		payload, err := encodeBSONRows(rows)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", src.Name, err)
		}
		f, err := w.Create(path.Join(backupDBDir, src.Name+".bson"))
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(payload); err != nil {
			return nil, err
		}
		exported = append(exported, src.Name)
	}

	m := manifest{
		Format:      backupFormat,
		Version:     backupFormatVersion,
		Storage:     s.storage,
		CreatedAt:   now.UTC(),
		Collections: exported,
	}
	mf, err := w.Create(backupManifestFile)
	if err != nil {
		return nil, err
	}
	if err := json.NewEncoder(mf).Encode(m); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

// toRows flattens models into documents keyed by their JSON names.
func toRows(data interface{}) ([]map[string]interface{}, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func encodeBSONRows(rows []map[string]interface{}) ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	for _, row := range rows {
		b, err := bson.Marshal(row)
		if err != nil {
			return nil, err
		}
		buffer.Write(b)
	}
	return buffer.Bytes(), nil
}

func decodeBSONRows(payload []byte) ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0)
	cursor := 0
	for cursor < len(payload) {
		if cursor+4 > len(payload) {
			return nil, fmt.Errorf("invalid bson payload")
		}
		docLen := int(int32(binary.LittleEndian.Uint32(payload[cursor : cursor+4])))
		if docLen <= 0 || cursor+docLen > len(payload) {
			return nil, fmt.Errorf("invalid bson document length")
		}
		var row map[string]interface{}
		if err := bson.Unmarshal(payload[cursor:cursor+docLen], &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
		cursor += docLen
	}
	return rows, nil
}

// Summary is the manifest of a stored archive with the row count of each collection.
type Summary struct {
	Filename  string         `json:"filename"`
	Format    string         `json:"format"`
	Version   int            `json:"version"`
	Storage   string         `json:"storage"`
	CreatedAt time.Time      `json:"created_at"`
	Rows      map[string]int `json:"rows"`
}

// Inspect opens a stored archive and counts the documents in every collection.
func (s *Service) Inspect(name string) (*Summary, error) {
	data, err := s.Open(name)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	out := &Summary{Filename: filepath.Base(name), Rows: map[string]int{}}
	for _, f := range zr.File {
		payload, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		switch {
		case f.Name == backupManifestFile:
			var m manifest
			if err := json.Unmarshal(payload, &m); err != nil {
				return nil, fmt.Errorf("decode manifest: %w", err)
			}
			out.Format, out.Version, out.Storage, out.CreatedAt = m.Format, m.Version, m.Storage, m.CreatedAt
		case path.Dir(f.Name) == backupDBDir && path.Ext(f.Name) == ".bson":
			rows, err := decodeBSONRows(payload)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", f.Name, err)
			}
			out.Rows[strings.TrimSuffix(path.Base(f.Name), ".bson")] = len(rows)
		}
	}
	if out.Format != backupFormat {
		return nil, errUnknownFormat
	}
	return out, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
