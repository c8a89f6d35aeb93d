package docstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Origin normalizes the two ways a document enters a session: raw uploaded
// bytes or an identifier resolved against the remote document store.
type Origin struct {
	Name     string // display name, e.g. filename or paper id
	Upload   []byte // set for uploaded documents
	RemoteId string // set for fetch-by-id documents
}

func (o Origin) IsUpload() bool {
	return o.RemoteId == ""
}

// Adapter exposes one ingestion entry point over both origins.
type Adapter interface {
	Acquire(ctx context.Context, origin Origin) ([]byte, error)
}

// HTTPAdapter fetches remote documents as {base}/pdf/{id} and passes uploads
// through a size cap.
type HTTPAdapter struct {
	BaseURL        string
	MaxUploadBytes int
	Client         *http.Client
}

func NewHTTPAdapter(baseURL string, maxUploadBytes int, timeout time.Duration) *HTTPAdapter {
	return &HTTPAdapter{
		BaseURL:        baseURL,
		MaxUploadBytes: maxUploadBytes,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (a *HTTPAdapter) Acquire(ctx context.Context, origin Origin) ([]byte, error) {
	if origin.IsUpload() {
		if len(origin.Upload) == 0 {
			return nil, fmt.Errorf("empty upload")
		}
		if a.MaxUploadBytes > 0 && len(origin.Upload) > a.MaxUploadBytes {
			return nil, fmt.Errorf("upload exceeds %d bytes", a.MaxUploadBytes)
		}
		return origin.Upload, nil
	}

	url := fmt.Sprintf("%s/pdf/%s", a.BaseURL, origin.RemoteId)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", origin.RemoteId, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", origin.RemoteId, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", origin.RemoteId, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch %s: empty body", origin.RemoteId)
	}

	return data, nil
}
