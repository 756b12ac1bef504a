// Package s3 stores uploaded images in an S3 bucket and returns their public URLs.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/media"
)

const defaultRegion = "us-east-1"

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Config struct {
	Bucket string
	Region string
	// Prefix is prepended to every object key.
	Prefix string
}

type ImageStore struct {
	api   putObjectAPI
	cfg   Config
	newID func() string
}

// New loads the default AWS credential chain for cfg.Region.
func New(ctx context.Context, cfg Config, newID func() string) (*ImageStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	return newWithAPI(s3.NewFromConfig(awsCfg), cfg, newID), nil
}

func newWithAPI(api putObjectAPI, cfg Config, newID func() string) *ImageStore {
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	return &ImageStore{api: api, cfg: cfg, newID: newID}
}

func (s *ImageStore) Upload(ctx context.Context, folder string, u media.Upload) (string, error) {
	if u.Body == nil {
		return "", media.ErrEmptyUpload
	}
	body, err := io.ReadAll(u.Body)
	if err != nil {
		return "", fmt.Errorf("s3: read upload: %w", err)
	}
	if len(body) == 0 {
		return "", media.ErrEmptyUpload
	}

	key := s.objectKey(folder, u.Filename)
	contentType := u.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3: put %s: %w", key, err)
	}
	return s.publicURL(key), nil
}

func (s *ImageStore) objectKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" || mime.TypeByExtension(ext) == "" {
		ext = ""
	}
	return strings.TrimPrefix(path.Join(s.cfg.Prefix, folder, s.newID()+ext), "/")
}

func (s *ImageStore) publicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}
