package mq

import (
	"context"
	"fmt"
	"time"

	"wallet-core-sol/internal/pkg/logger"
	"wallet-core-sol/internal/utils"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const (
	defaultBatchSize = 32 * 1024
	defaultLingerMs  = 5
)

// TopicSpec 需要确保存在的 topic
type TopicSpec struct {
	Topic      string
	Partitions int
}

type KafkaProducerOption struct {
	Brokers   string // Kafka broker 地址，多个用英文逗号分隔
	BatchSize int    // 批处理大小（字节）
	LingerMs  int    // 批处理最大延迟（毫秒）
	Topics    []TopicSpec
}

// ensureTopics 检查 topic 是否存在，不存在则创建
func ensureTopics(brokers string, topics []TopicSpec) error {
	adminClient, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer adminClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	meta, err := adminClient.GetMetadata(nil, true, 10000)
	if err != nil {
		return fmt.Errorf("failed to get metadata: %w", err)
	}

	// replicationFactor: 每个分区的副本数
	replicationFactor := 1
	if len(meta.Brokers) > 1 {
		replicationFactor = 2
	}
	logger.Infof("[mq] Kafka broker count = %d, using replication factor = %d", len(meta.Brokers), replicationFactor)

	existing := make(map[string]bool, len(meta.Topics))
	for _, topic := range meta.Topics {
		existing[topic.Topic] = true
	}

	var toCreate []kafka.TopicSpecification
	for _, t := range topics {
		if t.Topic == "" || existing[t.Topic] {
			continue
		}
		partitions := t.Partitions
		if partitions <= 0 {
			partitions = 1
		}
		toCreate = append(toCreate, kafka.TopicSpecification{
			Topic:             t.Topic,
			NumPartitions:     partitions,
			ReplicationFactor: replicationFactor,
		})
	}
	if len(toCreate) == 0 {
		return nil
	}

	results, err := adminClient.CreateTopics(ctx, toCreate)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %w", result.Topic, result.Error)
		}
	}
	return nil
}

// NewKafkaProducer 创建 Kafka 生产者（幂等、acks=all）
func NewKafkaProducer(opt KafkaProducerOption) (*kafka.Producer, error) {
	if err := ensureTopics(opt.Brokers, opt.Topics); err != nil {
		return nil, err
	}

	batchSize := opt.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	lingerMs := opt.LingerMs
	if lingerMs < 0 {
		lingerMs = defaultLingerMs
	}

	localIP, _ := utils.GetLocalIP()
	if localIP == "" {
		localIP = "unknown"
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": opt.Brokers,
		"client.id":         fmt.Sprintf("wallet-core-sol-%s", localIP),

		// 可靠性保障
		"acks":                                  "all",
		"enable.idempotence":                    true,
		"max.in.flight.requests.per.connection": 5, // 幂等场景下最大值为 5

		// 超时与重试
		"delivery.timeout.ms": 30000,
		"request.timeout.ms":  30000,
		"retries":             5,
		"retry.backoff.ms":    100,

		"batch.size":       batchSize,
		"linger.ms":        lingerMs,
		"compression.type": "none",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return producer, nil
}
