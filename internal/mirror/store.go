// Package mirror copies externally hosted images into storage we control.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
)

// Store persists mirrored assets by file name.
type Store interface {
	Backend() string
	Exists(ctx context.Context, name string) (bool, error)
	Save(ctx context.Context, name, contentType string, r io.Reader) error
	// Open returns ErrAssetNotFound when name is not stored.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	URL(name string) string
}

var ErrAssetNotFound = errors.New("asset not found")

// LocalStore keeps assets in a directory served by the API under a URL prefix.
type LocalStore struct {
	dir        string
	urlPrefix  string
	publicBase string
}

func NewLocalStore(dir, urlPrefix, publicBase string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	prefix := "/" + strings.Trim(urlPrefix, "/")
	return &LocalStore{dir: dir, urlPrefix: prefix, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

func (s *LocalStore) Backend() string { return "local" }

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.dir, name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Save writes to a temp file in the same directory and renames it into place,
// so readers never see a partial asset.
func (s *LocalStore) Save(_ context.Context, name, _ string, r io.Reader) error {
	tmp, err := os.CreateTemp(s.dir, ".mirror-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrAssetNotFound
	}
	return f, err
}

func (s *LocalStore) URL(name string) string {
	return s.publicBase + s.urlPrefix + "/" + name
}

// GCSStore keeps assets in a Google Cloud Storage bucket.
type GCSStore struct {
	client     *storage.Client
	bucket     string
	publicBase string
	prefix     string
}

func NewGCSStore(client *storage.Client, bucket, publicBase, prefix string) *GCSStore {
	return &GCSStore{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		prefix:     strings.Trim(prefix, "/"),
	}
}

func (s *GCSStore) Backend() string { return "gcs" }

func (s *GCSStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *GCSStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(s.key(name)).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, err
}

func (s *GCSStore) Save(ctx context.Context, name, contentType string, r io.Reader) error {
	w := s.client.Bucket(s.bucket).Object(s.key(name)).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (s *GCSStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.key(name)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from GCS: %w", err)
	}
	return r, nil
}

func (s *GCSStore) URL(name string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBase, s.bucket, s.key(name))
}
