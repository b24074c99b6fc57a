// Package agents holds the generation-backed agents: the describe agent on the
// ingestion write path and the best-fit agent on the read path.
package agents

import (
	"context"
	"fmt"

	"syara/internal/nlp"
	"syara/internal/vectorstore"
)

// DescribeAgent turns car feature blobs into natural-language descriptions and
// stores them, embedded, in the vector index.
type DescribeAgent struct {
	nlp   nlp.Engine
	store vectorstore.Store
}

func NewDescribeAgent(engine nlp.Engine, store vectorstore.Store) *DescribeAgent {
	return &DescribeAgent{
		nlp:   engine,
		store: store,
	}
}

// DescribeCars produces one description per feature blob, in input order, one
// generation call per item. The first failing call aborts the whole batch so
// descriptions never go out of alignment with their ids.
func (a *DescribeAgent) DescribeCars(ctx context.Context, features []string) ([]string, error) {
	descriptions := make([]string, 0, len(features))
	for i, blob := range features {
		desc, err := a.nlp.Chat(ctx, nlp.TierDescribe, describeSystem,
			nlp.UserMessage(fmt.Sprintf(describePrompt, blob)))
		if err != nil {
			return nil, fmt.Errorf("failed to describe car %d of %d: %w", i+1, len(features), err)
		}
		descriptions = append(descriptions, desc)
	}
	return descriptions, nil
}

// ProcessCars embeds the descriptions and upserts them as points keyed by the
// position-aligned car ids.
func (a *DescribeAgent) ProcessCars(ctx context.Context, collection string, descriptions []string, ids []int64) error {
	if len(descriptions) != len(ids) {
		return fmt.Errorf("misaligned batch: %d descriptions, %d ids", len(descriptions), len(ids))
	}
	if len(ids) == 0 {
		return nil
	}

	embeddings, err := a.nlp.Embed(ctx, descriptions)
	if err != nil {
		return fmt.Errorf("failed to embed descriptions: %w", err)
	}
	if len(embeddings) != len(descriptions) {
		return fmt.Errorf("embedder returned %d vectors for %d descriptions", len(embeddings), len(descriptions))
	}

	payloads := make([]map[string]interface{}, len(ids))
	for i, id := range ids {
		payloads[i] = map[string]interface{}{
			"id":   id,
			"text": descriptions[i],
		}
	}

	if err := a.store.AddPoints(ctx, collection, ids, embeddings, payloads); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}
