package ai

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const embeddingModel = "text-embedding-004"

// ErrNoAPIKey means semantic matching is unavailable, not that something broke.
var ErrNoAPIKey = errors.New("GEMINI_API_KEY environment variable is not set")

// Embedder turns text into a vector. *Client is the production implementation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Client wraps the GenAI embedding model.
type Client struct {
	genaiClient *genai.Client
	model       *genai.EmbeddingModel
}

// NewClient creates a connected AI client from GEMINI_API_KEY.
func NewClient(ctx context.Context) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}

	return &Client{
		genaiClient: c,
		model:       c.EmbeddingModel(embeddingModel),
	}, nil
}

// Close terminates the connection.
func (c *Client) Close() {
	if c.genaiClient != nil {
		c.genaiClient.Close()
	}
}

// Embed returns the embedding vector for a product or item name.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := c.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("AI returned empty embedding for %q", text)
	}
	return res.Embedding.Values, nil
}

// CosineSimilarity calculates the similarity between two vectors (0.0 to 1.0).
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dotProduct, magA, magB float32
	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dotProduct / (float32(math.Sqrt(float64(magA))) * float32(math.Sqrt(float64(magB))))
}

// EncodeVector converts a vector to a little-endian BLOB for SQLite.
func EncodeVector(v []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeVector converts a stored BLOB back to a vector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid byte length %d for float32 vector", len(b))
	}
	v := make([]float32, len(b)/4)
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &v)
	return v, err
}
