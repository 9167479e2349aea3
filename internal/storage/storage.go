package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

var (
	// ErrObjectNotFound is returned when the key does not exist in the bucket.
	ErrObjectNotFound = errors.New("object not found")
	// ErrCredentials is returned when the backend cannot authenticate.
	ErrCredentials = errors.New("storage credentials not available")
	// ErrForeignURL is returned when a URL does not point into the configured bucket.
	ErrForeignURL = errors.New("url does not belong to the configured bucket")
)

// Storage is a bucket-scoped blob store. Implementations are safe for
// concurrent use.
type Storage interface {
	// Upload stores the object and returns its durable URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error

	// KeyFromURL derives the object key from a durable URL issued by Upload.
	KeyFromURL(rawURL string) (string, error)
}

type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
	OwnerID     string
}

type UploadResult struct {
	Key string
	URL string
}

// ObjectURL builds https://<bucket>.<host>/<key>.
func ObjectURL(bucket, host, key string) string {
	u := url.URL{
		Scheme: "https",
		Host:   bucket + "." + host,
		Path:   "/" + key,
	}
	return u.String()
}

// KeyFromURL reverses ObjectURL. The full path is the key, so owner-namespaced
// keys survive the round trip.
func KeyFromURL(bucket, host, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !strings.EqualFold(u.Host, bucket+"."+host) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty key in %s", ErrForeignURL, rawURL)
	}
	return key, nil
}
