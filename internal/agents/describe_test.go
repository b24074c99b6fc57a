package agents

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syara/internal/nlp"
	"syara/internal/vectorstore"
)

type fakeEngine struct {
	chatFn  func(system string, messages []nlp.Message) (string, error)
	embedFn func(texts []string) ([][]float32, error)
}

func (f *fakeEngine) Chat(ctx context.Context, size nlp.Size, system string, messages []nlp.Message) (string, error) {
	if f.chatFn != nil {
		return f.chatFn(system, messages)
	}
	return "reply to: " + messages[0].Content, nil
}

func (f *fakeEngine) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.embedFn != nil {
		return f.embedFn(texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1, 0}
	}
	return vectors, nil
}

type addCall struct {
	collection string
	ids        []int64
	embeddings [][]float32
	payloads   []map[string]interface{}
}

type fakeStore struct {
	added    []addCall
	searchFn func(collection string, vector []float32, topK int) ([]vectorstore.Point, error)
}

func (f *fakeStore) Connect(ctx context.Context) error { return nil }
func (f *fakeStore) Disconnect() error                 { return nil }
func (f *fakeStore) CreateCollection(ctx context.Context, name string) error {
	return nil
}

func (f *fakeStore) AddPoints(ctx context.Context, collection string, ids []int64, embeddings [][]float32, payloads []map[string]interface{}) error {
	f.added = append(f.added, addCall{collection, ids, embeddings, payloads})
	return nil
}

func (f *fakeStore) SemanticSearch(ctx context.Context, collection string, vector []float32, topK int) ([]vectorstore.Point, error) {
	if f.searchFn != nil {
		return f.searchFn(collection, vector, topK)
	}
	return nil, nil
}

func (f *fakeStore) MetadataFilter(ctx context.Context, collection, key string, value interface{}) ([]vectorstore.Point, error) {
	return nil, nil
}

func TestDescribeCarsKeepsInputOrder(t *testing.T) {
	engine := &fakeEngine{
		chatFn: func(system string, messages []nlp.Message) (string, error) {
			return "desc of " + messages[0].Content, nil
		},
	}
	agent := NewDescribeAgent(engine, &fakeStore{})

	features := []string{"car A", "car B", "car C"}
	descriptions, err := agent.DescribeCars(context.Background(), features)
	require.NoError(t, err)

	require.Len(t, descriptions, len(features))
	for i, feature := range features {
		assert.Contains(t, descriptions[i], feature)
	}
}

func TestDescribeCarsFailureAbortsBatch(t *testing.T) {
	calls := 0
	engine := &fakeEngine{
		chatFn: func(system string, messages []nlp.Message) (string, error) {
			calls++
			if calls == 2 {
				return "", errors.New("generation timed out")
			}
			return "ok", nil
		},
	}
	store := &fakeStore{}
	agent := NewDescribeAgent(engine, store)

	_, err := agent.DescribeCars(context.Background(), []string{"one", "two", "three"})
	require.Error(t, err)
	assert.Equal(t, 2, calls, "the batch aborts at the first failing item")
	assert.Empty(t, store.added, "no points may be written for a failed batch")
}

func TestProcessCarsAlignsPayloadIDs(t *testing.T) {
	store := &fakeStore{}
	agent := NewDescribeAgent(&fakeEngine{}, store)

	ids := []int64{10, 20, 30}
	descriptions := []string{"short", "a bit longer", "the longest one"}
	require.NoError(t, agent.ProcessCars(context.Background(), "cars", descriptions, ids))

	require.Len(t, store.added, 1)
	call := store.added[0]
	assert.Equal(t, "cars", call.collection)
	require.Len(t, call.ids, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, call.ids[i])
		assert.Equal(t, id, call.payloads[i]["id"])
		assert.Equal(t, descriptions[i], call.payloads[i]["text"])
	}
	assert.Len(t, call.embeddings, len(ids))
}

func TestProcessCarsRejectsMisalignedBatch(t *testing.T) {
	store := &fakeStore{}
	agent := NewDescribeAgent(&fakeEngine{}, store)

	err := agent.ProcessCars(context.Background(), "cars", []string{"only one"}, []int64{1, 2})
	require.Error(t, err)
	assert.Empty(t, store.added)
}

func TestProcessCarsEmbedFailureWritesNothing(t *testing.T) {
	engine := &fakeEngine{
		embedFn: func(texts []string) ([][]float32, error) {
			return nil, fmt.Errorf("embedding service unreachable")
		},
	}
	store := &fakeStore{}
	agent := NewDescribeAgent(engine, store)

	err := agent.ProcessCars(context.Background(), "cars", []string{"a", "b"}, []int64{1, 2})
	require.Error(t, err)
	assert.Empty(t, store.added)
}

func TestProcessCarsEmptyBatchIsNoop(t *testing.T) {
	store := &fakeStore{}
	agent := NewDescribeAgent(&fakeEngine{}, store)

	require.NoError(t, agent.ProcessCars(context.Background(), "cars", nil, nil))
	assert.Empty(t, store.added)
}
