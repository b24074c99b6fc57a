package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"syara/internal/agents"
	"syara/internal/clickhouse"
	"syara/internal/rabbitmq"
	"syara/models"
)

const messageTimeout = 5 * time.Minute

// IngestWorker drives the describe→embed→upsert pipeline for each export
// envelope pulled off the queue. The consumer acks a message only after
// handleMessage returns nil, so a crash mid-pipeline leaves the message for
// redelivery; upsert-by-id makes the replay safe.
type IngestWorker struct {
	consumer   *rabbitmq.Consumer
	agent      *agents.DescribeAgent
	audit      *clickhouse.Client
	queueName  string
	collection string
}

func NewIngestWorker(consumer *rabbitmq.Consumer, agent *agents.DescribeAgent, audit *clickhouse.Client, queueName, collection string) *IngestWorker {
	return &IngestWorker{
		consumer:   consumer,
		agent:      agent,
		audit:      audit,
		queueName:  queueName,
		collection: collection,
	}
}

func (w *IngestWorker) Start() error {
	log.Printf("🚀 Starting Ingest Worker for queue: %s", w.queueName)
	return w.consumer.ConsumeQueue(w.queueName, w.handleMessage)
}

func (w *IngestWorker) handleMessage(body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
	defer cancel()

	stage := "decoding"
	envelope, err := models.DecodeEnvelope(body)
	if err != nil {
		w.record(ctx, "message_dead_lettered", stage, len(body), 0, err.Error())
		// Permanently malformed; redelivery can never help.
		return fmt.Errorf("%w: %v", rabbitmq.ErrMalformed, err)
	}

	log.Printf("📦 Processing envelope: %d cars (%d bytes)", len(envelope.Cars), len(body))

	stage = "projecting"
	ids, features, err := projectCars(envelope.Cars)
	if err != nil {
		return w.fail(ctx, stage, body, len(envelope.Cars), err)
	}

	stage = "describing"
	descriptions, err := w.agent.DescribeCars(ctx, features)
	if err != nil {
		return w.fail(ctx, stage, body, len(envelope.Cars), err)
	}

	stage = "embedding_upserting"
	if err := w.agent.ProcessCars(ctx, w.collection, descriptions, ids); err != nil {
		return w.fail(ctx, stage, body, len(envelope.Cars), err)
	}

	w.record(ctx, "message_processed", "acknowledged", len(body), len(envelope.Cars), "")
	log.Printf("✓ Processed %d cars into collection %s", len(ids), w.collection)
	return nil
}

// projectCars splits each car into its identity and its feature blob. The two
// slices stay index-aligned through every later stage; descriptions are zipped
// back to ids by position, never by content.
func projectCars(cars []models.Car) ([]int64, []string, error) {
	ids := make([]int64, 0, len(cars))
	features := make([]string, 0, len(cars))
	for _, car := range cars {
		blob, err := car.FeatureText()
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, car.ID)
		features = append(features, blob)
	}
	return ids, features, nil
}

func (w *IngestWorker) fail(ctx context.Context, stage string, body []byte, carCount int, err error) error {
	w.record(ctx, "message_failed", stage, len(body), carCount, err.Error())
	return fmt.Errorf("pipeline failed at %s (%d bytes, %d cars): %w", stage, len(body), carCount, err)
}

// record writes an audit event. Best-effort: a failure here never fails the
// message.
func (w *IngestWorker) record(ctx context.Context, event, stage string, messageBytes, carCount int, errText string) {
	if w.audit == nil {
		return
	}
	err := w.audit.InsertPipelineEvent(ctx, map[string]interface{}{
		"service":       "genai",
		"event":         event,
		"stage":         stage,
		"message_bytes": int64(messageBytes),
		"car_count":     int64(carCount),
		"error":         errText,
		"event_time":    time.Now(),
	})
	if err != nil {
		log.Printf("Failed to record audit event %s: %v", event, err)
	}
}
