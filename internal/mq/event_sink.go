package mq

import (
	"context"
	"fmt"
	"time"

	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/utils"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// KafkaEventSink 将执行事件写入 Kafka，按签名分区保证同一笔交易的事件有序
type KafkaEventSink struct {
	producer   *kafka.Producer
	topic      string
	partitions uint32
	timeout    time.Duration
}

func NewKafkaEventSink(producer *kafka.Producer, topic string, partitions int, timeout time.Duration) *KafkaEventSink {
	if partitions <= 0 {
		partitions = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaEventSink{
		producer:   producer,
		topic:      topic,
		partitions: uint32(partitions),
		timeout:    timeout,
	}
}

// EncodeExecutionEvent 编码为 [uint32 type][structpb.Struct]
func EncodeExecutionEvent(ev core.ExecutionEvent) ([]byte, error) {
	return utils.EncodeStructEvent(utils.EventTypeExecution, map[string]any{
		"signature":    ev.Signature.String(),
		"status":       string(ev.Status),
		"network":      string(ev.Network),
		"fee_asset":    ev.FeeAsset.String(),
		"instructions": ev.Instructions,
		"error":        ev.Error,
		"at_ms":        ev.At.UnixMilli(),
	})
}

func (s *KafkaEventSink) Publish(ctx context.Context, ev core.ExecutionEvent) error {
	value, err := EncodeExecutionEvent(ev)
	if err != nil {
		return err
	}
	job := &KafkaJob{
		Topic:     s.topic,
		Partition: int32(utils.PartitionHashBytes(ev.Signature[:], s.partitions)),
		Key:       []byte(ev.Signature.String()),
		Value:     value,
	}
	_, failed := SendKafkaJobs(ctx, s.producer, []*KafkaJob{job}, s.timeout)
	if len(failed) > 0 {
		return fmt.Errorf("publish execution event %s: %w", ev.Signature, failed[0].Err)
	}
	return nil
}
