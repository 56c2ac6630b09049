// Package archive writes generated reports to disk and optionally
// mirrors them to an S3-compatible bucket.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/newsbrief-ai/newsbrief/internal/logger"
)

// Uploader is the bucket surface the archiver needs; the real client
// is swapped for a recorder in tests.
type Uploader interface {
	Upload(ctx context.Context, key, content string) error
}

// Archiver persists rendered reports. The local write always happens;
// the upload only when an Uploader is configured.
type Archiver struct {
	dir      string
	uploader Uploader

	now func() time.Time
}

// New creates an Archiver writing under dir. uploader may be nil.
func New(dir string, uploader Uploader) *Archiver {
	return &Archiver{dir: dir, uploader: uploader, now: time.Now}
}

// Save writes the report twice: a timestamped file that is never
// overwritten, and a {date}_latest.md that always points at the newest
// edition for the date. Returns the timestamped path.
func (a *Archiver) Save(ctx context.Context, date, content string) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.md", date, a.now().Format("150405"))
	path := filepath.Join(a.dir, name)
	latest := filepath.Join(a.dir, date+"_latest.md")

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}
	if err := os.WriteFile(latest, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write latest file: %w", err)
	}

	if a.uploader != nil {
		// Upload failure is not fatal; the local copy exists.
		if err := a.uploader.Upload(ctx, "reports/"+name, content); err != nil {
			logger.Get().Warn().Err(err).Str("key", name).Msg("report upload failed")
		}
		if err := a.uploader.Upload(ctx, "reports/"+date+"_latest.md", content); err != nil {
			logger.Get().Warn().Err(err).Msg("latest upload failed")
		}
	}

	return path, nil
}

// S3Uploader pushes reports to an S3 or S3-compatible (R2, MinIO)
// bucket.
type S3Uploader struct {
	client *s3.Client
	bucket string
}

// S3Options configures NewS3Uploader. Endpoint plus static keys target
// an S3-compatible provider; leaving them empty falls back to the
// standard AWS config chain.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Uploader builds the bucket client.
func NewS3Uploader(ctx context.Context, opts S3Options) (*S3Uploader, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is not configured")
	}

	loadOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{client: client, bucket: opts.Bucket}, nil
}

// Upload puts one Markdown object.
func (u *S3Uploader) Upload(ctx context.Context, key, content string) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(content),
		ContentType: aws.String("text/markdown; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
