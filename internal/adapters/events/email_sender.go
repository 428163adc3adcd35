package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// LoggingEmailSender records outgoing mail instead of delivering it.
// Local runs and tests see the code in the log output.
type LoggingEmailSender struct {
	logger *slog.Logger
}

func NewLoggingEmailSender(logger *slog.Logger) *LoggingEmailSender {
	return &LoggingEmailSender{logger: logger}
}

func (s *LoggingEmailSender) SendTemplate(ctx context.Context, template, to, from string, vars map[string]string) error {
	s.logger.InfoContext(ctx, "email send requested",
		"module", "events.email_sender",
		"layer", "adapter",
		"operation", "send_template",
		"outcome", "success",
		"template", template,
		"to", to,
		"from", from,
		"vars", vars,
	)
	return nil
}

// KafkaEmailSender hands delivery to the notification service over Kafka.
// Keying on the recipient keeps one address's mails in order.
type KafkaEmailSender struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaEmailSender(brokers []string, topic string) (*KafkaEmailSender, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka email sender requires at least one broker")
	}
	if topic == "" {
		topic = "notification.email.requested"
	}
	return &KafkaEmailSender{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topic: topic,
	}, nil
}

func (s *KafkaEmailSender) SendTemplate(ctx context.Context, template, to, from string, vars map[string]string) error {
	payload, err := json.Marshal(map[string]any{
		"template":     template,
		"to":           to,
		"from":         from,
		"vars":         vars,
		"requested_at": time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Topic: s.topic,
		Key:   []byte(to),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (s *KafkaEmailSender) Close() error {
	return s.writer.Close()
}
