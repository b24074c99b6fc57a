package workers

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syara/internal/agents"
	"syara/internal/nlp"
	"syara/internal/rabbitmq"
	"syara/internal/vectorstore"
	"syara/models"
)

type stubEngine struct {
	chatFn func(system string, messages []nlp.Message) (string, error)
}

func (s *stubEngine) Chat(ctx context.Context, size nlp.Size, system string, messages []nlp.Message) (string, error) {
	if s.chatFn != nil {
		return s.chatFn(system, messages)
	}
	return "description of " + messages[0].Content[:20], nil
}

// Deterministic embedding so redelivered messages produce identical vectors.
func (s *stubEngine) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)%7 + 1), float32(len(text)%3 + 1), 1}
	}
	return vectors, nil
}

func newTestWorker(t *testing.T, engine nlp.Engine) (*IngestWorker, vectorstore.Store) {
	t.Helper()
	store := vectorstore.NewLocalStore(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, store.Connect(context.Background()))
	t.Cleanup(func() { store.Disconnect() })

	agent := agents.NewDescribeAgent(engine, store)
	return NewIngestWorker(nil, agent, nil, "db_export_queue", "cars"), store
}

func testEnvelopeBody(t *testing.T, ids ...int64) []byte {
	t.Helper()
	cars := make([]models.Car, len(ids))
	for i, id := range ids {
		cars[i] = models.Car{
			ID:              id,
			Brand:           "Toyota",
			Model:           "Corolla",
			Year:            2020 + int(id%5),
			BodyType:        "Sedan",
			EngineType:      "Inline-4",
			Transmission:    "CVT",
			FuelType:        "Petrol",
			Color:           "White",
			Features:        "Cruise control",
			PriceUSD:        decimal.RequireFromString("19999.00"),
			DiscountPercent: decimal.RequireFromString("0.00"),
			NumInStock:      1,
			Description:     "seed description",
		}
	}
	body, err := (&models.Envelope{Cars: cars}).Encode()
	require.NoError(t, err)
	return body
}

func TestHandleMessageUpsertsAllCars(t *testing.T) {
	worker, store := newTestWorker(t, &stubEngine{})
	body := testEnvelopeBody(t, 1, 2, 3)

	require.NoError(t, worker.handleMessage(body))

	results, err := store.SemanticSearch(context.Background(), "cars", []float32{1, 1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	for _, p := range results {
		assert.EqualValues(t, p.ID, p.Payload["id"])
	}
}

func TestHandleMessageRedeliveryIsIdempotent(t *testing.T) {
	worker, store := newTestWorker(t, &stubEngine{})
	body := testEnvelopeBody(t, 5, 6)

	// First delivery succeeds but goes unacked (simulated crash before ack);
	// the broker redelivers the same body.
	require.NoError(t, worker.handleMessage(body))
	require.NoError(t, worker.handleMessage(body))

	results, err := store.SemanticSearch(context.Background(), "cars", []float32{1, 1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2, "redelivery must overwrite, not duplicate")
}

func TestHandleMessageMalformedBodyIsDeadLettered(t *testing.T) {
	worker, store := newTestWorker(t, &stubEngine{})

	err := worker.handleMessage([]byte("{not an envelope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, rabbitmq.ErrMalformed)

	results, err := store.SemanticSearch(context.Background(), "cars", []float32{1, 1, 1}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHandleMessageDescribeFailureWritesNothing(t *testing.T) {
	engine := &stubEngine{
		chatFn: func(system string, messages []nlp.Message) (string, error) {
			if strings.Contains(messages[0].Content, `"year": 2022`) {
				return "", assert.AnError
			}
			return "fine", nil
		},
	}
	worker, store := newTestWorker(t, engine)

	// Car id 2 has year 2022 and fails; the whole 3-car batch must abort.
	err := worker.handleMessage(testEnvelopeBody(t, 1, 2, 3))
	require.Error(t, err)
	assert.NotErrorIs(t, err, rabbitmq.ErrMalformed, "a transient failure must requeue, not dead-letter")

	results, searchErr := store.SemanticSearch(context.Background(), "cars", []float32{1, 1, 1}, 10)
	require.NoError(t, searchErr)
	assert.Empty(t, results, "no partial writes for a failed batch")
}

func TestProjectCarsAlignment(t *testing.T) {
	cars := []models.Car{
		{ID: 1, Brand: "Toyota"},
		{ID: 2, Brand: "Honda"},
		{ID: 3, Brand: "Ford"},
	}

	ids, features, err := projectCars(cars)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	require.Len(t, features, 3)
	for i, car := range cars {
		assert.Equal(t, car.ID, ids[i])
		assert.Contains(t, features[i], car.Brand)
		assert.NotContains(t, features[i], `"id"`)
	}
}
