package export

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"voxchat/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool
}

type S3Uploader struct {
	logger *slog.Logger
	client *minio.Client
	bucket string
	host   string
}

func NewS3Uploader(logger *slog.Logger, opts S3Options) (*S3Uploader, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.Secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init S3 client: %w", err)
	}
	scheme := "http"
	if opts.Secure {
		scheme = "https"
	}
	return &S3Uploader{
		logger: logger,
		client: client,
		bucket: opts.Bucket,
		host:   fmt.Sprintf("%s://%s", scheme, opts.Endpoint),
	}, nil
}

// Upload stores the rendered log under key and returns its URL.
func (u *S3Uploader) Upload(ctx context.Context, key string, entries []models.Entry) (string, error) {
	if key == "" {
		key = FileName(time.Now())
	}
	body := Text(entries)
	_, err := u.client.PutObject(ctx, u.bucket, key, strings.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  "text/plain; charset=utf-8",
		UserMetadata: map[string]string{"exported-at": time.Now().Format(time.RFC3339)},
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	link := fmt.Sprintf("%s/%s/%s", u.host, u.bucket, url.PathEscape(path.Clean(key)))
	u.logger.Info("exported log", "url", link, "entries", len(entries))
	return link, nil
}
