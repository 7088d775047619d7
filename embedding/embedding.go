// Package embedding provides text-embedding providers for the detection
// engine. Production uses the OpenAI embeddings API; development and tests
// use a deterministic hash-derived provider so scoring stays reproducible
// without network access.
package embedding

import (
	"context"
	"crypto/sha256"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"go-sentinel/logging"
)

// Provider maps a batch of texts to unit-normalized vectors. Output length
// equals input length and an empty input yields an empty output.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// FromEnv picks the provider named by EMBEDDING_PROVIDER: "openai" for the
// real model, anything else (or unset) for the hash placeholder.
func FromEnv() Provider {
	if strings.ToLower(os.Getenv("EMBEDDING_PROVIDER")) == "openai" {
		return NewOpenAIProvider()
	}
	return NewHashProvider()
}

// OpenAIProvider embeds text through the OpenAI embeddings API. The client
// is process-wide and lazily initialized on first use.
type OpenAIProvider struct {
	model openai.EmbeddingModel

	clientOnce sync.Once
	client     *openai.Client
}

func NewOpenAIProvider() *OpenAIProvider {
	return &OpenAIProvider{model: openai.SmallEmbedding3}
}

func (p *OpenAIProvider) init() {
	p.clientOnce.Do(func() {
		p.client = openai.NewClient(os.Getenv("OPENAI_API_KEY"))
	})
}

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	p.init()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: p.model,
	})
	if err != nil {
		logging.Warn().Err(err).Int("texts", len(texts)).Msg("embedding request failed")
		return nil, err
	}

	vectors := make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float64, len(d.Embedding))
		for k, v := range d.Embedding {
			vec[k] = float64(v)
		}
		normalize(vec)
		vectors[i] = vec
	}
	return vectors, nil
}

// hashDim is the dimensionality of placeholder vectors.
const hashDim = 64

// HashProvider derives a pseudo-embedding from the SHA-256 of the text.
// Identical texts map to identical vectors, so near-duplicate detection
// still fires on exact copies; the vectors carry no semantic meaning.
type HashProvider struct {
	dim int
}

func NewHashProvider() *HashProvider {
	return &HashProvider{dim: hashDim}
}

func (h *HashProvider) Embed(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = hashVector(text, h.dim)
	}
	return vectors, nil
}

func hashVector(text string, dim int) []float64 {
	vec := make([]float64, dim)
	digest := sha256.Sum256([]byte(text))
	filled := 0
	for filled < dim {
		for _, b := range digest {
			if filled == dim {
				break
			}
			vec[filled] = float64(b)/127.5 - 1.0
			filled++
		}
		digest = sha256.Sum256(digest[:])
	}
	normalize(vec)
	return vec
}

func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for k := range vec {
		vec[k] /= norm
	}
}
