package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCS stores blobs in a Google Cloud Storage bucket.
type GCS struct {
	client *gcstorage.Client
	bucket string
}

// NewGCS creates a GCS backend for the given bucket using ambient
// application-default credentials.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := gcstorage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Write(ctx context.Context, key string, data []byte) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	return w.Close()
}

func (g *GCS) Read(ctx context.Context, key string) ([]byte, error) {
	r, err := g.OpenStream(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g *GCS) OpenStream(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return r, nil
}

func (g *GCS) List(ctx context.Context, prefix string) ([]string, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &gcstorage.Query{Prefix: prefix})

	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	sort.Strings(keys)
	return keys, nil
}

func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx)
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, gcstorage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCS) ResolveURI(key string) string {
	return fmt.Sprintf("gs://%s/%s", g.bucket, key)
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}
