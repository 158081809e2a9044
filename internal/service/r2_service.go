package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/maheshrc27/walk-gallery/configs"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const uploadAttempts = 3

var ErrUploadUnavailable = errors.New("object storage unavailable")

// Uploader stores media bytes and returns where they can be fetched.
type Uploader interface {
	Upload(ctx context.Context, data []byte, kind, mimeType string) (string, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type R2Service struct {
	config  cfg.R2
	timeout time.Duration

	once   sync.Once
	client objectPutter
	err    error
}

func NewR2Service(c cfg.Config) *R2Service {
	return &R2Service{config: c.R2, timeout: c.UploadTimeout}
}

func (r *R2Service) R2Client(ctx context.Context) (objectPutter, error) {
	r.once.Do(func() {
		awsCfg, err := config.LoadDefaultConfig(ctx,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r.config.AccessKey, r.config.SecretKey, "")),
			config.WithRegion("auto"),
		)
		if err != nil {
			slog.Info(err.Error())
			r.err = err
			return
		}

		r.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.config.AccountID))
		})
	})
	return r.client, r.err
}

// Upload puts data under kind/<nanoid> and returns its public URL. Each
// attempt has its own timeout; after the last one the error wraps
// ErrUploadUnavailable.
func (r *R2Service) Upload(ctx context.Context, data []byte, kind, mimeType string) (string, error) {
	client, err := r.R2Client(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadUnavailable, err)
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	key := fmt.Sprintf("%s/%s", kind, id)

	var lastErr error
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		lastErr = r.put(ctx, client, key, data, mimeType)
		if lastErr == nil {
			return fmt.Sprintf("%s/%s", r.config.PublicURL, key), nil
		}
		slog.Warn("upload attempt failed", "key", key, "attempt", attempt, "error", lastErr)
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %v", ErrUploadUnavailable, lastErr)
}

func (r *R2Service) put(ctx context.Context, client objectPutter, key string, data []byte, mimeType string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	}
	_, err := client.PutObject(ctx, input)
	return err
}
