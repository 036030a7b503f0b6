package objstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
)

// URIScheme prefixes every object URI produced by this package.
const URIScheme = "gs://"

// Uploader places normalized recordings into object storage and returns a
// stable URI for the transcription backend.
type Uploader interface {
	Upload(ctx context.Context, localPath, objectName string) (string, error)
}

// BucketStore is a bucket-rooted directory uploader. Objects live under
// <root>/<bucket>/<name> and are addressed as gs://<bucket>/<name>.
type BucketStore struct {
	bucket string
	root   string
}

// NewBucketStore builds a store for the named bucket rooted at dir.
func NewBucketStore(bucket, root string) (*BucketStore, error) {
	if bucket == "" {
		return nil, errors.New(errors.KindStorage, "objstore.new", "bucket name required")
	}
	if root == "" {
		return nil, errors.New(errors.KindStorage, "objstore.new", "storage root required")
	}
	if err := os.MkdirAll(filepath.Join(root, bucket), 0o755); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "objstore.new", "failed to create bucket dir", err)
	}
	return &BucketStore{bucket: bucket, root: root}, nil
}

// Upload copies the local file into the bucket and returns its URI.
func (s *BucketStore) Upload(_ context.Context, localPath, objectName string) (string, error) {
	if objectName == "" {
		return "", errors.New(errors.KindStorage, "objstore.upload", "object name required")
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrap(errors.KindStorage, "objstore.upload", "failed to open source file", err)
	}
	defer src.Close()

	target := filepath.Join(s.root, s.bucket, objectName)
	dst, err := os.Create(target)
	if err != nil {
		return "", errors.Wrap(errors.KindStorage, "objstore.upload", "failed to create object", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(target)
		return "", errors.Wrap(errors.KindStorage, "objstore.upload", "failed to write object", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(target)
		return "", errors.Wrap(errors.KindStorage, "objstore.upload", "failed to finalize object", err)
	}
	return URIScheme + s.bucket + "/" + objectName, nil
}

// LocalPath resolves a URI produced by this store back to the file path.
// Empty result means the URI belongs to a different bucket or scheme.
func (s *BucketStore) LocalPath(uri string) string {
	rest, ok := strings.CutPrefix(uri, URIScheme+s.bucket+"/")
	if !ok {
		return ""
	}
	return filepath.Join(s.root, s.bucket, rest)
}
