package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syara/internal/nlp"
	"syara/internal/vectorstore"
)

func TestBestFitRunPipeline(t *testing.T) {
	var chatSystems []string
	engine := &fakeEngine{
		chatFn: func(system string, messages []nlp.Message) (string, error) {
			chatSystems = append(chatSystems, system)
			if len(chatSystems) == 1 {
				return "compact suv low mileage", nil
			}
			return "I recommend car 42.", nil
		},
	}

	var searchedTopK int
	var searchedCollection string
	store := &fakeStore{
		searchFn: func(collection string, vector []float32, topK int) ([]vectorstore.Point, error) {
			searchedCollection = collection
			searchedTopK = topK
			return []vectorstore.Point{
				{ID: 42, Payload: map[string]interface{}{"id": int64(42), "text": "Reliable sedan"}},
			}, nil
		},
	}

	agent := NewBestFitAgent(engine, store, "cars")
	reply, err := agent.Run(context.Background(), "I need a family car")
	require.NoError(t, err)

	assert.Equal(t, "I recommend car 42.", reply)
	assert.Len(t, chatSystems, 2, "one enhance call and one respond call")
	assert.Equal(t, "cars", searchedCollection)
	assert.Equal(t, 3, searchedTopK)
	assert.Empty(t, store.added, "the best-fit agent never writes to the store")
}

func TestBestFitRunSurfacesSearchFailure(t *testing.T) {
	store := &fakeStore{
		searchFn: func(collection string, vector []float32, topK int) ([]vectorstore.Point, error) {
			return nil, errors.New("vector store unreachable")
		},
	}
	agent := NewBestFitAgent(&fakeEngine{}, store, "cars")

	_, err := agent.Run(context.Background(), "anything cheap")
	assert.Error(t, err)
}

func TestBestFitRunSurfacesEnhanceFailure(t *testing.T) {
	engine := &fakeEngine{
		chatFn: func(system string, messages []nlp.Message) (string, error) {
			return "", errors.New("model overloaded")
		},
	}
	agent := NewBestFitAgent(engine, &fakeStore{}, "cars")

	_, err := agent.Run(context.Background(), "anything cheap")
	assert.Error(t, err)
}
