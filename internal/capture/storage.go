package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"egzersizlab/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArtifactStore persists finalized recording artifacts.
type ArtifactStore interface {
	Upload(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

// NewStore builds the configured artifact store backend.
func NewStore(cfg *config.StorageConfig) (ArtifactStore, error) {
	switch cfg.Backend {
	case "minio":
		return NewMinioStore(cfg)
	case "", "local":
		return &LocalStore{Path: cfg.LocalPath}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// LocalStore writes artifacts to a directory on disk.
type LocalStore struct {
	Path string
}

func (s *LocalStore) Upload(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(s.Path, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return s.URL(name), nil
}

func (s *LocalStore) Delete(ctx context.Context, name string) error {
	return os.Remove(filepath.Join(s.Path, name))
}

func (s *LocalStore) URL(name string) string {
	return "/recordings/" + name
}

// MinioStore keeps artifacts in a MinIO bucket.
type MinioStore struct {
	Client *minio.Client
	Bucket string
}

func NewMinioStore(cfg *config.StorageConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStore{Client: client, Bucket: cfg.MinioBucket}, nil
}

func (s *MinioStore) Upload(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.Client.PutObject(ctx, s.Bucket, name, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return s.URL(name), nil
}

func (s *MinioStore) Delete(ctx context.Context, name string) error {
	return s.Client.RemoveObject(ctx, s.Bucket, name, minio.RemoveObjectOptions{})
}

func (s *MinioStore) URL(name string) string {
	return fmt.Sprintf("/%s/%s", s.Bucket, name)
}
