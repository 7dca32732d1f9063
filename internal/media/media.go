// Package media stores uploaded images on an external media host.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/efraim-memorial/backend/internal/pkg/apperr"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Object is a validated upload ready to be sent to a host.
type Object struct {
	Key         string
	Filename    string
	ContentType string
	Data        []byte
}

func (o Object) Size() int64 { return int64(len(o.Data)) }

// Asset is a stored object: its public URL and the handle used to delete it.
type Asset struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// Host stores and deletes media.
type Host interface {
	Name() string
	Upload(ctx context.Context, obj Object) (Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// UsageReporter is implemented by hosts that can report their storage usage.
type UsageReporter interface {
	Usage(ctx context.Context) (map[string]interface{}, error)
}

// ObjectKey builds <folder>/<yyyy>/<mm>/<uuid><ext>.
func ObjectKey(folder, ext string, now time.Time) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	name := uuid.NewString() + ext
	return path.Join(folder, now.Format("2006"), now.Format("01"), name)
}

// Prepare reads an uploaded file and checks it against limit and the image type
// requirement. Nothing is read when the declared size already exceeds limit.
func Prepare(fh *multipart.FileHeader, limit int64, folder string, now time.Time) (Object, error) {
	if fh == nil {
		return Object{}, apperr.Validation("No file uploaded")
	}
	if fh.Size > limit {
		return Object{}, tooLarge(limit)
	}
	f, err := fh.Open()
	if err != nil {
		return Object{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return Read(f, fh.Filename, limit, folder, now)
}

// Read is Prepare for a plain reader.
func Read(r io.Reader, filename string, limit int64, folder string, now time.Time) (Object, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return Object{}, tooLarge(limit)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Object{}, apperr.Validation("No file uploaded")
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Object{}, apperr.New(apperr.CodeUnsupportedMediaType,
			fmt.Sprintf("Only images are allowed, got %s", mt.String()))
	}
	return Object{
		Key:         ObjectKey(folder, mt.Extension(), now),
		Filename:    filename,
		ContentType: strings.SplitN(mt.String(), ";", 2)[0],
		Data:        data,
	}, nil
}

func tooLarge(limit int64) error {
	return apperr.New(apperr.CodePayloadTooLarge,
		fmt.Sprintf("Image too large. Max %dMB allowed.", limit>>20))
}

// ErrUsageUnsupported is returned by hosts without a usage report.
var ErrUsageUnsupported = apperr.New(apperr.CodeNotFound, "usage report not supported by this media host")
