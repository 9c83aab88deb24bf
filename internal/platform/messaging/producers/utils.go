package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	topicReadAttempts = 5
	topicReadBackoff  = 2 * time.Second
)

// ensureTopic makes sure the decision or DLQ topic exists before a writer is
// bound to it. Brokers with auto-create disabled would otherwise drop the
// first publish.
func ensureTopic(conn *kafka.Conn, topic string, partitions, replication int, log *slog.Logger) error {
	var (
		found []kafka.Partition
		err   error
	)
	for attempt := 1; attempt <= topicReadAttempts; attempt++ {
		found, err = conn.ReadPartitions(topic)
		if err == nil {
			break
		}
		log.Warn("Reading topic partitions failed", "topic", topic, "attempt", attempt, "error", err)
		time.Sleep(topicReadBackoff)
	}

	if len(found) > 0 {
		log.Info("Kafka topic present", "topic", topic, "partitions", len(found))
		return nil
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     max(partitions, 1),
		ReplicationFactor: max(replication, 1),
	}
	log.Info("Creating Kafka topic",
		"topic", topic,
		"partitions", topicConfig.NumPartitions,
		"replication_factor", topicConfig.ReplicationFactor,
		"last_read_error", err,
	)
	if err := conn.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	return nil
}
