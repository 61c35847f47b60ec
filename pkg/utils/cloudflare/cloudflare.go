package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var (
	ErrNotConfigured  = errors.New("object storage is not configured")
	ErrObjectNotFound = errors.New("object not found")
)

type R2Config struct {
	AccountID string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
}

func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

// R2 stores thumbnails and serves presigned video links from a Cloudflare R2 bucket
type R2 struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	publicURL string
}

func NewR2(ctx context.Context, c R2Config) (*R2, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID))
		o.UsePathStyle = true
		o.Region = "auto"
	})

	return &R2{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    c.Bucket,
		publicURL: strings.TrimSuffix(c.PublicURL, "/"),
	}, nil
}

// ThumbnailKey builds users/<user>/videos/<video>/thumbnails/<unique><ext>
func ThumbnailKey(username, videoSlug, ext string) string {
	unique := fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.New().String())
	return path.Join("users", slug.Make(username), "videos", slug.Make(videoSlug), "thumbnails", unique+ext)
}

// VideoKey builds users/<user>/videos/<file>
func VideoKey(username, fileName string) string {
	return path.Join("users", slug.Make(username), "videos", fileName)
}

// Upload writes body under key and returns its public URL
func (r *R2) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("could not upload file to R2: %w", err)
	}
	return r.URLFor(key), nil
}

func (r *R2) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("could not delete file from R2: %w", err)
	}
	return nil
}

// Stat returns the stored size of key, or ErrObjectNotFound
func (r *R2) Stat(ctx context.Context, key string) (int64, error) {
	out, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return 0, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return 0, fmt.Errorf("could not stat %s: %w", key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// PresignGet returns a time limited download link for key
func (r *R2) PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}
	if fileName != "" {
		input.ResponseContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", fileName))
	}

	req, err := r.presign.PresignGetObject(ctx, input, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("could not presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (r *R2) URLFor(key string) string {
	return r.publicURL + "/" + key
}

// KeyFromURL strips the public prefix from a URL produced by Upload
func (r *R2) KeyFromURL(url string) string {
	return strings.TrimPrefix(strings.TrimPrefix(url, r.publicURL), "/")
}
