package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"paperchat-be/pkg/llm"
)

type GeminiProvider struct {
	ApiKey    string
	ModelName string
	Client    *http.Client
}

var _ llm.Provider = &GeminiProvider{}

func NewGeminiProvider(apiKey, modelName string) *GeminiProvider {
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GeminiProvider{
		ApiKey:    apiKey,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type geminiChatPart struct {
	Text string `json:"text"`
}

type geminiChatContent struct {
	Parts []geminiChatPart `json:"parts"`
	Role  string           `json:"role,omitempty"`
}

type geminiChatRequest struct {
	Contents []geminiChatContent `json:"contents"`
}

type geminiChatCandidate struct {
	Content geminiChatContent `json:"content"`
}

type geminiChatResponse struct {
	Candidates []geminiChatCandidate `json:"candidates"`
}

func (g *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{}
	for _, opt := range opts {
		opt(options)
	}
	model := g.ModelName
	if options.Model != "" {
		model = options.Model
	}

	contents := make([]geminiChatContent, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Role == "assistant" || msg.Role == "model" {
			role = "model"
		}
		contents = append(contents, geminiChatContent{
			Parts: []geminiChatPart{{Text: msg.Content}},
			Role:  role,
		})
	}

	payload, err := json.Marshal(geminiChatRequest{Contents: contents})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1/models/%s:generateContent",
		model,
	)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", g.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := g.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error from gemini response, code %d, body %s", res.StatusCode, string(resByte))
	}

	var chatRes geminiChatResponse
	if err := json.Unmarshal(resByte, &chatRes); err != nil {
		return "", err
	}
	if len(chatRes.Candidates) == 0 || len(chatRes.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	return chatRes.Candidates[0].Content.Parts[0].Text, nil
}

// ChatStream degrades to a single full-response token. The REST generateContent
// endpoint has no incremental framing we consume; the orchestrator still works,
// the caller just receives one large fragment.
func (g *GeminiProvider) ChatStream(ctx context.Context, history []llm.Message, fn llm.TokenFunc, opts ...llm.Option) error {
	reply, err := g.Chat(ctx, history, opts...)
	if err != nil {
		return err
	}
	return fn(reply)
}
