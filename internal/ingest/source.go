package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/weatherxm-network/qod/internal/models"
)

// Source produces one day batch of CSV rows.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// NewSource picks a source implementation from a reference: an
// http(s) URL fetches, anything else reads a local path.
func NewSource(ref string) Source {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return &HTTPSource{
			URL:    ref,
			Client: &http.Client{Timeout: 30 * time.Second},
		}
	}
	return FileSource(ref)
}

// FileSource reads a batch from a local CSV file.
type FileSource string

func (f FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(string(f))
}

// HTTPSource fetches a batch over HTTP, retrying transient failures
// with exponential backoff. Client errors other than 429 are
// permanent: re-requesting a batch that does not exist will not make
// it exist.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (h *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		resp, err := h.Client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch batch: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("fetch batch: status %d", resp.StatusCode)
		default:
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch batch: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(string(body))), nil
}

// FetchBatch opens a source and decodes the device's readings from
// it.
func FetchBatch(ctx context.Context, src Source, deviceID string) ([]models.RawReading, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadBatch(rc, deviceID)
}
