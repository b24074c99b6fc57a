// Package exporter snapshots the relational store on an interval and publishes
// each snapshot to the export queue.
package exporter

import (
	"context"
	"fmt"
	"log"
	"time"

	"syara/internal/clickhouse"
	"syara/internal/rabbitmq"
)

type Exporter struct {
	reader    *SnapshotReader
	publisher *rabbitmq.Publisher
	audit     *clickhouse.Client
	queueName string
}

func NewExporter(reader *SnapshotReader, publisher *rabbitmq.Publisher, audit *clickhouse.Client, queueName string) *Exporter {
	return &Exporter{
		reader:    reader,
		publisher: publisher,
		audit:     audit,
		queueName: queueName,
	}
}

// ExportTick performs one snapshot-and-publish run: exactly one message on
// success, none on failure. No retry inside the tick.
func (e *Exporter) ExportTick(ctx context.Context) error {
	envelope, err := e.reader.Snapshot(ctx)
	if err != nil {
		e.record(ctx, "export_failed", "snapshot", 0, 0, err.Error())
		return fmt.Errorf("snapshot failed: %w", err)
	}

	body, err := envelope.Encode()
	if err != nil {
		e.record(ctx, "export_failed", "encode", 0, len(envelope.Cars), err.Error())
		return err
	}

	if err := e.publisher.Publish(ctx, e.queueName, body); err != nil {
		e.record(ctx, "export_failed", "publish", len(body), len(envelope.Cars), err.Error())
		return fmt.Errorf("publish failed: %w", err)
	}

	e.record(ctx, "export_published", "publish", len(body), len(envelope.Cars), "")
	log.Printf("✓ Exported snapshot: %d users, %d cars, %d orders, %d order items (%d bytes)",
		len(envelope.Users), len(envelope.Cars), len(envelope.Orders), len(envelope.OrderItems), len(body))
	return nil
}

// record writes an audit event. Best-effort: a failure here never fails the
// tick.
func (e *Exporter) record(ctx context.Context, event, stage string, messageBytes, carCount int, errText string) {
	if e.audit == nil {
		return
	}
	err := e.audit.InsertPipelineEvent(ctx, map[string]interface{}{
		"service":       "exporter",
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
