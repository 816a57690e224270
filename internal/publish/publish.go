// Package publish uploads finished report files to S3-compatible object
// storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config locates the destination bucket.
type Config struct {
	Endpoint  string `koanf:"endpoint"`
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// Enabled reports whether a destination is configured.
func (c Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// objectPutter is the part of the minio client the publisher uses.
type objectPutter interface {
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Publisher uploads run reports under <prefix>/<run-id>/.
type Publisher struct {
	client objectPutter
	cfg    Config
	logger *slog.Logger
}

// New creates a publisher with a minio client for cfg.
func New(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if !cfg.Enabled() {
		return nil, errors.New("publish endpoint and bucket must be configured")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return newPublisher(client, cfg, logger), nil
}

func newPublisher(client objectPutter, cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{client: client, cfg: cfg, logger: logger}
}

// Key returns the object key of file for a run.
func (p *Publisher) Key(runID, file string) string {
	return path.Join(strings.Trim(p.cfg.Prefix, "/"), runID, filepath.Base(file))
}

// Publish uploads files and returns their s3:// locations.
func (p *Publisher) Publish(ctx context.Context, runID string, files []string) ([]string, error) {
	out := make([]string, 0, len(files))
	for _, f := range files {
		key := p.Key(runID, f)
		info, err := p.client.FPutObject(ctx, p.cfg.Bucket, key, f, minio.PutObjectOptions{
			ContentType: contentType(f),
		})
		if err != nil {
			return out, fmt.Errorf("failed to upload %s: %w", f, err)
		}
		p.logger.Debug("uploaded report", slog.String("path", f), slog.String("key", key), slog.Int64("size", info.Size))
		out = append(out, fmt.Sprintf("s3://%s/%s", p.cfg.Bucket, key))
	}
	p.logger.Info("published reports", slog.String("run_id", runID), slog.Int("files", len(out)))
	return out, nil
}

func contentType(file string) string {
	if t := mime.TypeByExtension(filepath.Ext(file)); t != "" {
		return t
	}
	return "application/octet-stream"
}
