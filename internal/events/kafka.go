package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON to one Kafka topic, keyed by device_id
// so every event of a device lands on the same partition.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

// NewKafkaSink creates a sink writing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

// Name implements Sink.
func (s *KafkaSink) Name() string {
	return "kafka:" + s.topic
}

// Handle implements Sink.
func (s *KafkaSink) Handle(ctx context.Context, e Event) error {
	out, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: marshalling event: %w", ErrSinkFailed, err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.DeviceID),
		Value: out,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSinkFailed, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
