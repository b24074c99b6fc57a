// Package vectorstore normalizes the two vector index backends behind one
// capability contract: upsert by id, top-k cosine search, exact payload
// filter. Point identity is the car id and must round-trip exactly on every
// backend.
package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"syara/config"
)

// ErrCollectionExists is returned by CreateCollection when the named
// collection is already provisioned. Callers check first or tolerate it.
var ErrCollectionExists = errors.New("collection already exists")

// Point is one stored (id, payload) unit as returned by searches.
type Point struct {
	ID      int64
	Score   float64
	Payload map[string]interface{}
}

type Store interface {
	Connect(ctx context.Context) error
	Disconnect() error
	CreateCollection(ctx context.Context, name string) error
	// AddPoints upserts position-aligned ids/embeddings/payloads. Atomicity
	// across the batch is backend-defined.
	AddPoints(ctx context.Context, collection string, ids []int64, embeddings [][]float32, payloads []map[string]interface{}) error
	// SemanticSearch returns up to topK nearest points by cosine similarity,
	// fewer if the collection is smaller. Tie order is backend-native.
	SemanticSearch(ctx context.Context, collection string, vector []float32, topK int) ([]Point, error)
	// MetadataFilter returns points whose payload matches key == value exactly.
	MetadataFilter(ctx context.Context, collection, key string, value interface{}) ([]Point, error)
}

// NewStore selects the backend from configuration.
func NewStore(cfg config.VectorConfig) (Store, error) {
	switch cfg.Provider {
	case "qdrant":
		return NewQdrantStore(cfg), nil
	case "local":
		return NewLocalStore(cfg.LocalPath), nil
	default:
		return nil, fmt.Errorf("unknown vector provider: %s", cfg.Provider)
	}
}

func validateBatch(ids []int64, embeddings [][]float32, payloads []map[string]interface{}) error {
	if len(ids) != len(embeddings) || len(ids) != len(payloads) {
		return fmt.Errorf("misaligned batch: %d ids, %d embeddings, %d payloads",
			len(ids), len(embeddings), len(payloads))
	}
	return nil
}
