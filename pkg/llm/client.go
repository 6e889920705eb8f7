package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/OHDSI/Hecate/pkg/apperrors"
)

// Client wraps an OpenAI-compatible embeddings endpoint.
type Client struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// ClientConfig holds the settings for creating a Client.
type ClientConfig struct {
	Endpoint string // Base URL, e.g., "https://api.openai.com/v1"
	APIKey   string
	Model    string
}

// NewClient creates a new embeddings client.
func NewClient(cfg *ClientConfig, logger *zap.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}
}

// CreateEmbedding generates an embedding vector for the input text.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	start := time.Now()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{input},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbedding, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding in response", apperrors.ErrEmbedding)
	}

	c.logger.Debug("Created embedding",
		zap.String("model", c.model),
		zap.Int("dimensions", len(resp.Data[0].Embedding)),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Data[0].Embedding, nil
}
