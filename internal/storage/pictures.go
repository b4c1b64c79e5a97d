package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"marketready/internal/config"
)

const maxPictureSize = 5 * 1024 * 1024

var (
	ErrPictureTooBig      = errors.New("picture exceeds the 5MB limit")
	ErrInvalidPictureType = errors.New("only JPEG and PNG pictures are allowed")
)

var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
}

// Pictures stores onboarding profile pictures and returns a public URL
// for the uploaded object.
type Pictures interface {
	Upload(ctx context.Context, userID string, file io.Reader, size int64, contentType string) (string, error)
}

// DisabledPictures rejects every upload. It stands in when no object
// storage endpoint is configured so the rest of the wizard still works.
type DisabledPictures struct{}

func (DisabledPictures) Upload(ctx context.Context, userID string, file io.Reader, size int64, contentType string) (string, error) {
	return "", errors.New("picture storage is not configured")
}

type MinIOPictures struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinIOPictures(cfg config.Storage) (*MinIOPictures, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	s := &MinIOPictures{client: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(cfg.PublicURL, "/")}
	if err := s.ensureBucket(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinIOPictures) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

func (s *MinIOPictures) Upload(ctx context.Context, userID string, file io.Reader, size int64, contentType string) (string, error) {
	if size > maxPictureSize {
		return "", ErrPictureTooBig
	}
	if _, ok := allowedContentTypes[contentType]; !ok {
		return "", ErrInvalidPictureType
	}

	ext := "jpg"
	if contentType == "image/png" {
		ext = "png"
	}
	key := fmt.Sprintf("profile-pictures/%s/%s.%s", userID, uuid.NewString(), ext)

	_, err := s.client.PutObject(ctx, s.bucket, key, file, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload picture: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key), nil
}
