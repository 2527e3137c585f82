package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/lkkmills/gee/internal/config"
	"github.com/lkkmills/gee/internal/domain"
)

// Writer publishes zonal records to the sink topic. It implements
// pipeline.RecordSink.
type Writer struct {
	writer     *kafkago.Writer
	projection map[string]struct{}
	logger     *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic. An
// EXPORT_FIELDS projection, when set, limits the serialized payload to the
// named record fields (keys and headers are unaffected).
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, projection: projectionSet(cfg.ExportFields), logger: logger}
}

// ExportBatch serializes and publishes the records in a single
// WriteMessages call for efficiency.
func (w *Writer) ExportBatch(ctx context.Context, records []domain.ZonalRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i], w.projection)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

// Close flushes and closes the underlying producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a record into a Kafka message. Keys are the
// record's deterministic identity so downstream consumers can upsert
// idempotently across reruns.
func serializeToMessage(record domain.ZonalRecord, projection map[string]struct{}) (kafkago.Message, error) {
	data, err := marshalProjected(record, projection)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize zonal record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(record.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "variable", Value: []byte(record.Variable)},
			{Key: "statistic", Value: []byte(record.Statistic)},
			{Key: "processed_at", Value: []byte(record.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}

// marshalProjected serializes the record, keeping only projected fields
// when a projection is configured. Nullable fields (period, value) survive
// projection as explicit nulls, never silent omissions.
func marshalProjected(record domain.ZonalRecord, projection map[string]struct{}) ([]byte, error) {
	full, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	if len(projection) == 0 {
		return full, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(full, &fields); err != nil {
		return nil, err
	}
	for key := range fields {
		if _, keep := projection[key]; !keep {
			delete(fields, key)
		}
	}
	return json.Marshal(fields)
}

func projectionSet(fields []string) map[string]struct{} {
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
