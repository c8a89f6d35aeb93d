package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TextExtractor turns PDF bytes into plain text. Extraction itself lives in
// an external sidecar; corrupt files and unsupported encodings come back as
// plain errors.
type TextExtractor interface {
	Extract(ctx context.Context, pdf []byte) (string, error)
}

// HTTPExtractor posts the PDF to an extraction sidecar and reads back
// {"text": "..."}.
type HTTPExtractor struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPExtractor(baseURL string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

type extractResponse struct {
	Text string `json:"text"`
}

func (e *HTTPExtractor) Extract(ctx context.Context, pdf []byte) (string, error) {
	url := e.BaseURL + "/extract"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(pdf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("extractor request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read extractor response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extractor error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var res extractResponse
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		return "", fmt.Errorf("unmarshal extractor response: %w", err)
	}
	if res.Text == "" {
		return "", fmt.Errorf("extractor returned empty text")
	}

	return res.Text, nil
}
