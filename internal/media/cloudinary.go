package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	cldconfig "github.com/cloudinary/cloudinary-go/v2/config"
	"github.com/efraim-memorial/backend/internal/pkg/apperr"
)

const defaultCloudinaryPrefix = "https://api.cloudinary.com"

// CloudinaryOptions configures the Cloudinary host.
type CloudinaryOptions struct {
	CloudName string
	APIKey    string
	APISecret string
	// BaseURL overrides the API prefix, with or without the /v1_1 suffix.
	BaseURL string
	Timeout time.Duration
}

// Cloudinary stores images through the Cloudinary upload and admin APIs.
type Cloudinary struct {
	cld     *cloudinary.Cloudinary
	timeout time.Duration
}

func NewCloudinary(opts CloudinaryOptions) (*Cloudinary, error) {
	if opts.CloudName == "" || opts.APIKey == "" || opts.APISecret == "" {
		return nil, fmt.Errorf("incomplete cloudinary config: cloud_name/api_key/api_secret are required")
	}
	cfg, err := cldconfig.NewFromParams(opts.CloudName, opts.APIKey, opts.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	prefix := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	prefix = strings.TrimSuffix(prefix, "/v1_1")
	if prefix == "" {
		prefix = defaultCloudinaryPrefix
	}
	cfg.API.UploadPrefix = prefix

	cld, err := cloudinary.NewFromConfiguration(*cfg)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Cloudinary{cld: cld, timeout: timeout}, nil
}

func (c *Cloudinary) Name() string { return "cloudinary" }

// Upload stores the object under its key without extension; Cloudinary keeps the format.
func (c *Cloudinary) Upload(ctx context.Context, obj Object) (Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	publicID := strings.TrimSuffix(obj.Key, path.Ext(obj.Key))
	res, err := c.cld.Upload.Upload(ctx, bytes.NewReader(obj.Data), uploader.UploadParams{PublicID: publicID})
	if err != nil {
		return Asset{}, apperr.External("cloudinary upload", err)
	}
	if res.Error.Message != "" {
		return Asset{}, apperr.External("cloudinary upload", errors.New(res.Error.Message))
	}
	link := res.SecureURL
	if link == "" {
		link = res.URL
	}
	if link == "" || res.PublicID == "" {
		return Asset{}, apperr.External("cloudinary upload", fmt.Errorf("response without url or public_id"))
	}
	return Asset{URL: link, PublicID: res.PublicID}, nil
}

func (c *Cloudinary) Delete(ctx context.Context, publicID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return apperr.External("cloudinary destroy", err)
	}
	if res.Error.Message != "" {
		return apperr.External("cloudinary destroy", errors.New(res.Error.Message))
	}
	if res.Result != "ok" && res.Result != "not found" {
		return apperr.External("cloudinary destroy", fmt.Errorf("unexpected result %q", res.Result))
	}
	return nil
}

// Usage returns the account usage report from the admin API.
func (c *Cloudinary) Usage(ctx context.Context) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.cld.Admin.Usage(ctx, admin.UsageParams{})
	if err != nil {
		return nil, apperr.External("cloudinary usage", err)
	}
	if res.Error.Message != "" {
		return nil, apperr.External("cloudinary usage", errors.New(res.Error.Message))
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, apperr.External("cloudinary usage", err)
	}
	var report map[string]interface{}
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, apperr.External("cloudinary usage", err)
	}
	delete(report, "error")
	delete(report, "Response")
	return report, nil
}
