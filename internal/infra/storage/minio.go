package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/pawankonwar/imagesight/internal/domain/analyses"
)

// Store uploads image blobs to an S3-compatible bucket. It implements the
// pipeline's BlobStore port.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	useSSL     bool
}

// New connects to MinIO and ensures the bucket exists.
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region, useSSL: useSSL}, nil
}

// Put writes the bytes to a new uniquely named object and returns its public
// URL. The object is retrievable at that URL as soon as Put returns.
func (s *Store) Put(ctx context.Context, data []byte, contentType, ext string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := objectKey(ext)
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", &domain.StorageWriteError{Err: err}
	}
	return s.locatorFor(key), nil
}

// Remove deletes the object a locator points at. Removing an object that is
// already gone succeeds; only an unaddressable locator or a transport
// failure is reported, so record deletion is never blocked by a missing
// blob.
func (s *Store) Remove(ctx context.Context, locator string) error {
	key, ok := keyFromLocator(locator, s.bucketName)
	if !ok {
		return &domain.StorageDeleteError{
			Locator: locator,
			Err:     fmt.Errorf("locator does not address bucket %q", s.bucketName),
		}
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return &domain.StorageDeleteError{Locator: locator, Err: err}
	}
	return nil
}

// Check pings the bucket; used by the health endpoint.
func (s *Store) Check(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}

// objectKey combines a millisecond timestamp with a random UUID so that
// concurrent uploads cannot collide.
func objectKey(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("uploads/%d-%s%s", time.Now().UnixMilli(), uuid.New().String(), ext)
}

// locatorFor builds the public URL for a key. The "/<bucket>/" path segment
// is the addressing convention keyFromLocator relies on; store and delete
// must keep it in sync.
func (s *Store) locatorFor(key string) string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucketName, key)
}

// keyFromLocator maps a public URL back to its object key via the
// "/<bucket>/" path segment.
func keyFromLocator(locator, bucket string) (string, bool) {
	marker := "/" + bucket + "/"
	i := strings.Index(locator, marker)
	if i < 0 {
		return "", false
	}
	key := locator[i+len(marker):]
	if key == "" {
		return "", false
	}
	return key, true
}
