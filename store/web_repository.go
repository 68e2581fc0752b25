package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
)

// WebRepository is a read-only Repository for a config document fetched from
// a remote HTTP endpoint, typically a server.Server publishing another
// Config's document.
type WebRepository struct {
	sync.RWMutex          // RWMutex to synchronize access to rawData during refresh
	Name         string   // Name of the configuration source
	URL          *url.URL // URL of the remote config document
	APIKey       string   // Optional API key sent as the X-API-KEY header
	rawData      []byte   // Raw bytes of the config document
}

// GetName returns the name of the configuration source.
func (w *WebRepository) GetName() string {
	return w.Name
}

// GetRawData returns the raw bytes of the config document.
func (w *WebRepository) GetRawData() []byte {
	w.RLock()
	defer w.RUnlock()
	return w.rawData
}

// Refresh fetches the config document from the remote endpoint. A 404 is
// reported as ErrNotExist; any other non-200 status is an error.
func (w *WebRepository) Refresh() error {
	ctx := context.Background()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL.String(), nil)
	if err != nil {
		logrus.WithError(err).Debug("error creating request")
		return err
	}
	if w.APIKey != "" {
		request.Header.Set("X-API-KEY", w.APIKey)
	}

	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		logrus.WithError(err).Debug("error doing request")
		return err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			logrus.WithError(err).Debug("error closing response body")
		}
	}(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", w.URL, ErrNotExist)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %s", w.URL, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logrus.WithError(err).Debug("error reading response body")
		return err
	}

	w.Lock()
	w.rawData = data
	w.Unlock()
	return nil
}

// Store is unsupported; the web backend is a consumer of published config.
func (w *WebRepository) Store(data []byte) error {
	return fmt.Errorf("%s: %w", w.URL, ErrReadOnly)
}
