package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	skafka "github.com/segmentio/kafka-go"
)

// Writer is the subset of the kafka writer the sink needs, kept as an
// interface so the sink is testable without a broker.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// KafkaSink publishes events to a Kafka topic. The message key is
// "<actionId>:<eventType>" so consumers can dedupe redeliveries.
type KafkaSink struct {
	writer Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &skafka.Writer{
			Addr:         skafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &skafka.Hash{},
			RequiredAcks: skafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// NewKafkaSinkWithWriter wires a custom writer, used by tests.
func NewKafkaSinkWithWriter(writer Writer) *KafkaSink {
	return &KafkaSink{writer: writer}
}

type kafkaEvent struct {
	Type          string    `json:"type"`
	ActionID      string    `json:"action_id"`
	WorkspaceID   string    `json:"workspace_id"`
	WorkspaceName string    `json:"workspace_name"`
	ActionType    string    `json:"action_type"`
	Message       string    `json:"message"`
	At            time.Time `json:"at"`
}

func (s *KafkaSink) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(kafkaEvent{
		Type:          string(event.Type),
		ActionID:      event.ActionID,
		WorkspaceID:   event.WorkspaceID,
		WorkspaceName: event.WorkspaceName,
		ActionType:    string(event.ActionType),
		Message:       event.Message,
		At:            event.At,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := skafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%s", event.ActionID, event.Type)),
		Value: payload,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event to kafka: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
