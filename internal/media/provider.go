package media

import (
	"context"
	"fmt"

	"github.com/efraim-memorial/backend/internal/config"
)

// New builds the host selected by cfg.Provider.
func New(ctx context.Context, cfg config.MediaConfig) (Host, error) {
	switch cfg.Provider {
	case config.ProviderCloudinary:
		return NewCloudinary(CloudinaryOptions{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
			BaseURL:   cfg.Cloudinary.BaseURL,
			Timeout:   cfg.Timeout,
		})
	case config.ProviderS3:
		return NewS3(ctx, S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PublicBaseURL:   cfg.S3.PublicBaseURL,
			PathStyle:       cfg.S3.PathStyle,
		})
	case config.ProviderLocal:
		return NewLocal(cfg.Local.Dir, cfg.Local.BaseURL)
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.Provider)
	}
}

// Folders returns the key prefixes for gallery and static-gallery uploads.
func Folders(cfg config.MediaConfig) (gallery, static string) {
	switch cfg.Provider {
	case config.ProviderCloudinary:
		return cfg.Cloudinary.Folder, cfg.Cloudinary.StaticFolder
	case config.ProviderS3:
		return cfg.S3.Prefix + "/gallery", cfg.S3.Prefix + "/static"
	default:
		return "gallery", "static"
	}
}
