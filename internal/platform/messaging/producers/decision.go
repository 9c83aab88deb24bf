package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/funding-audit-ledger/internal/config"
)

// DecisionProducer publishes admin withdrawal decisions for the processor.
// Writes are synchronous so the API can report a failed hand-off.
type DecisionProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewDecisionProducer creates the producer and ensures the decision topic exists
func NewDecisionProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DecisionProducer, error) {
	if cfg.DecisionTopic == "" {
		return nil, fmt.Errorf("kafka decision topic is not configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for decision producer: %w", err)
	}
	defer conn.Close()

	err = ensureTopic(conn, cfg.DecisionTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure decision topic %s exists: %w", cfg.DecisionTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DecisionTopic,
		Balancer:     &kafka.Hash{}, // Same record key, same partition
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.MaxWait,
	}

	return &DecisionProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.DecisionTopic,
	}, nil
}

// Publish marshals value to JSON and writes it under key
func (p *DecisionProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal decision message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish decision message",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published decision message",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *DecisionProducer) Close() error {
	p.logger.Info("Closing decision producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
