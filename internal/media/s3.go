package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/efraim-memorial/backend/internal/pkg/apperr"
)

// S3Options configures an S3-compatible host.
type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	PathStyle       bool
}

// S3 stores media in a bucket. The object key doubles as the public id.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if opts.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = opts.PathStyle
		})
	}
	client := s3.NewFromConfig(awsCfg, s3Options...)

	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   opts.Bucket,
		baseURL:  publicBaseURL(opts),
	}, nil
}

func publicBaseURL(opts S3Options) string {
	if v := strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/"); v != "" {
		return v
	}
	if opts.Endpoint != "" {
		endpoint := strings.TrimRight(opts.Endpoint, "/")
		if opts.PathStyle {
			return endpoint + "/" + opts.Bucket
		}
		if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
			return u.Scheme + "://" + opts.Bucket + "." + u.Host
		}
		return endpoint + "/" + opts.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
}

func (h *S3) Name() string { return "s3" }

func (h *S3) Upload(ctx context.Context, obj Object) (Asset, error) {
	_, err := h.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(obj.Key),
		Body:        bytes.NewReader(obj.Data),
		ContentType: aws.String(obj.ContentType),
	})
	if err != nil {
		return Asset{}, apperr.External("s3 upload", err)
	}
	return Asset{URL: h.baseURL + "/" + obj.Key, PublicID: obj.Key}, nil
}

func (h *S3) Delete(ctx context.Context, publicID string) error {
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return apperr.External("s3 delete", err)
	}
	return nil
}

// Usage counts the objects and bytes stored in the bucket.
func (h *S3) Usage(ctx context.Context) (map[string]interface{}, error) {
	var objects, size int64
	p := s3.NewListObjectsV2Paginator(h.client, &s3.ListObjectsV2Input{Bucket: aws.String(h.bucket)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, apperr.External("s3 usage", err)
		}
		for _, o := range page.Contents {
			objects++
			size += aws.ToInt64(o.Size)
		}
	}
	return map[string]interface{}{
		"provider": h.Name(),
		"bucket":   h.bucket,
		"objects":  objects,
		"bytes":    size,
	}, nil
}
