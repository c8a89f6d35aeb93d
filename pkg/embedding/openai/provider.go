package openai

import (
	"context"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	pkgembedding "paperchat-be/pkg/embedding"
)

// Provider implements embedding.Provider against any OpenAI-compatible
// embedding API (llama.cpp server, vLLM, OpenAI itself).
type Provider struct {
	embedder embeddings.Embedder
}

// NewProvider creates a provider for the given base URL and model.
// Use "none" as token for local services that don't require authentication.
func NewProvider(baseURL, model, token string) (pkgembedding.Provider, error) {
	if token == "" {
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Provider{embedder: embedder}, nil
}

func (p *Provider) GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	// taskType has no OpenAI equivalent; symmetric embeddings are used for
	// both documents and queries.
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	for _, v := range vectors {
		pkgembedding.Normalize(v)
	}
	return vectors, nil
}
