package pipeline

import (
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/panoptes/helper"
)

// EmbeddingDim is the dimensionality of canonical-name embeddings. The
// entities table in the result store is created with this vector size, so
// the embedder and the store must agree on it.
const EmbeddingDim = 384

const embedderModelName = "sentence-transformers/all-MiniLM-L6-v2"

// DefaultEmbedder creates an embedder for canonical entity names, used for
// similarity lookup in the result store. Embeddings come from the
// all-MiniLM-L6-v2 sentence transformer and are checked against EmbeddingDim
// before they reach the store.
func DefaultEmbedder() (EmbedFunc, error) {
	modelPath, err := helper.PrepareModel(embedderModelName, "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "name-embedder",
	}
	embedderPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedder pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedder pipeline: %w", err)
	}

	return func(name string) ([]float32, error) {
		result, err := embedderPipeline.RunPipeline([]string{name})
		if err != nil {
			return nil, fmt.Errorf("failed to embed %q: %w", name, err)
		}

		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated for %q", name)
		}
		embedding := result.Embeddings[0]
		if len(embedding) != EmbeddingDim {
			return nil, fmt.Errorf("embedding for %q has dimension %d, want %d", name, len(embedding), EmbeddingDim)
		}

		return embedding, nil
	}, nil
}
