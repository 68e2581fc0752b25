package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/storage"
)

// GcsRepository is a writable Repository for a config document kept as an
// object in a Google Cloud Storage bucket.
type GcsRepository struct {
	sync.RWMutex                  // RWMutex to synchronize access to rawData during refresh
	Name          string          // Name of the configuration source
	BucketName    string          // Name of the GCS bucket
	ObjectName    string          // Name of the config object within the bucket
	Client        *storage.Client // GCS client; lazily created when nil
	rawData       []byte          // Raw bytes of the config document
	clientOnce    sync.Once       // Ensures the client is initialized only once
	clientInitErr error           // Error from lazy client initialization
}

func (g *GcsRepository) client(ctx context.Context) (*storage.Client, error) {
	if g.Client == nil {
		g.clientOnce.Do(func() {
			g.Client, g.clientInitErr = storage.NewClient(ctx)
		})
		if g.clientInitErr != nil {
			return nil, g.clientInitErr
		}
	}
	return g.Client, nil
}

// GetName returns the name of the configuration source.
func (g *GcsRepository) GetName() string {
	return g.Name
}

// GetRawData returns the raw bytes of the config document.
func (g *GcsRepository) GetRawData() []byte {
	g.RLock()
	defer g.RUnlock()
	return g.rawData
}

// Refresh re-reads the config object from the bucket. A missing object is
// reported as ErrNotExist.
func (g *GcsRepository) Refresh() error {
	ctx := context.Background()

	client, err := g.client(ctx)
	if err != nil {
		return err
	}

	// Network I/O happens outside the lock.
	obj := client.Bucket(g.BucketName).Object(g.ObjectName)
	reader, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%s/%s: %w", g.BucketName, g.ObjectName, ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("reading gs://%s/%s: %w", g.BucketName, g.ObjectName, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	g.Lock()
	g.rawData = data
	g.Unlock()
	return nil
}

// Store replaces the config object wholesale. GCS object writes are atomic:
// the new content only becomes visible once the writer closes cleanly.
func (g *GcsRepository) Store(data []byte) error {
	ctx := context.Background()

	client, err := g.client(ctx)
	if err != nil {
		return err
	}

	w := client.Bucket(g.BucketName).Object(g.ObjectName).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("writing gs://%s/%s: %w", g.BucketName, g.ObjectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writing gs://%s/%s: %w", g.BucketName, g.ObjectName, err)
	}

	g.Lock()
	g.rawData = append([]byte(nil), data...)
	g.Unlock()
	return nil
}
