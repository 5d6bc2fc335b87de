// Package feed publishes applied occupancy snapshots to a Kafka topic so
// downstream consumers (dashboards, history) can follow lot state without
// polling this service. Publishing is best-effort: a failed write is counted
// and logged, never propagated into the session.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/parkwatch/lot-occupancy-service/internal/observability"
	"github.com/parkwatch/lot-occupancy-service/internal/session"
)

// Writer produces snapshot events to the feed topic.
// It implements session.SnapshotSink.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the feed topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// Publish serializes one snapshot event and writes it to the feed topic.
func (w *Writer) Publish(ctx context.Context, ev session.SnapshotEvent) error {
	msg, err := serializeToMessage(ev)
	if err != nil {
		w.metrics.FeedPublishes.WithLabelValues("error").Inc()
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		w.metrics.FeedPublishes.WithLabelValues("error").Inc()
		return fmt.Errorf("write snapshot event: %w", err)
	}
	w.metrics.FeedPublishes.WithLabelValues("success").Inc()
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SnapshotEvent into a Kafka message keyed by
// lot id, so per-lot ordering is preserved within a partition.
func serializeToMessage(ev session.SnapshotEvent) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.LotID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "lot_mode", Value: []byte(ev.Mode)},
			{Key: "published_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
