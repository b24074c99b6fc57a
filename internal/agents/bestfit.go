package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"syara/internal/nlp"
	"syara/internal/vectorstore"
)

// bestFitTopK bounds how many retrieved cars ground the recommendation.
const bestFitTopK = 3

// BestFitAgent answers a free-text request with a recommendation grounded in
// the vector index. It never writes to the store; retry policy belongs to the
// caller.
type BestFitAgent struct {
	nlp        nlp.Engine
	store      vectorstore.Store
	collection string
}

func NewBestFitAgent(engine nlp.Engine, store vectorstore.Store, collection string) *BestFitAgent {
	return &BestFitAgent{
		nlp:        engine,
		store:      store,
		collection: collection,
	}
}

// Run executes enhance → embed → search → respond.
func (a *BestFitAgent) Run(ctx context.Context, userMessage string) (string, error) {
	enhanced, err := a.nlp.Chat(ctx, nlp.TierQueryRewrite, queryRewriteSystem,
		nlp.UserMessage(userMessage))
	if err != nil {
		return "", fmt.Errorf("failed to enhance query: %w", err)
	}

	embeddings, err := a.nlp.Embed(ctx, []string{enhanced})
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return "", fmt.Errorf("embedder returned %d vectors for one query", len(embeddings))
	}

	nearest, err := a.store.SemanticSearch(ctx, a.collection, embeddings[0], bestFitTopK)
	if err != nil {
		return "", fmt.Errorf("failed to search collection %s: %w", a.collection, err)
	}

	retrieved, err := renderPoints(nearest)
	if err != nil {
		return "", err
	}

	reply, err := a.nlp.Chat(ctx, nlp.TierRespond, recommendSystem,
		nlp.UserMessage(fmt.Sprintf(recommendPrompt, userMessage, retrieved)))
	if err != nil {
		return "", fmt.Errorf("failed to compose recommendation: %w", err)
	}
	return reply, nil
}

func renderPoints(points []vectorstore.Point) (string, error) {
	payloads := make([]map[string]interface{}, len(points))
	for i, p := range points {
		payloads[i] = p.Payload
	}
	rendered, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render retrieved cars: %w", err)
	}
	return string(rendered), nil
}
