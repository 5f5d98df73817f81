package mq

import (
	"context"
	"net"
	"testing"
	"time"

	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"
	"wallet-core-sol/internal/utils"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	testBroker = "127.0.0.1:9092"
	testTopic  = "wallet-core-test"
)

// 本地无 Kafka 时跳过依赖真实 broker 的测试
func requireKafka(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", testBroker, 500*time.Millisecond)
	if err != nil {
		t.Skipf("kafka not reachable at %s: %v", testBroker, err)
	}
	_ = conn.Close()
}

func createTestProducer(t *testing.T) *kafka.Producer {
	producer, err := NewKafkaProducer(KafkaProducerOption{
		Brokers: testBroker,
		Topics:  []TopicSpec{{Topic: testTopic, Partitions: 4}},
	})
	require.NoError(t, err)
	return producer
}

func TestSendKafkaJobs_RealKafka(t *testing.T) {
	requireKafka(t)
	producer := createTestProducer(t)
	defer producer.Close()

	jobs := []*KafkaJob{
		{Topic: testTopic, Partition: 0, Key: []byte("k1"), Value: []byte("v1")},
		{Topic: testTopic, Partition: 1, Key: []byte("k2"), Value: []byte("v2")},
	}
	ok, failed := SendKafkaJobs(context.Background(), producer, jobs, 5*time.Second)
	assert.Len(t, ok, 2)
	assert.Empty(t, failed)
}

func TestSendKafkaJobs_CancelledContext(t *testing.T) {
	requireKafka(t)
	producer := createTestProducer(t)
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []*KafkaJob{{Topic: testTopic, Partition: kafka.PartitionAny, Value: []byte("v")}}
	ok, failed := SendKafkaJobs(ctx, producer, jobs, 5*time.Second)
	// delivery report 可能先于 ctx 检查到达，两种结果都合法，但总数必须一致
	assert.Equal(t, 1, len(ok)+len(failed))
}

func TestKafkaEventSinkPublish_RealKafka(t *testing.T) {
	requireKafka(t)
	producer := createTestProducer(t)
	defer producer.Close()

	sink := NewKafkaEventSink(producer, testTopic, 4, 5*time.Second)
	var sig types.Signature
	sig[27] = 3
	err := sink.Publish(context.Background(), core.ExecutionEvent{
		Signature: sig,
		Status:    core.ExecutionSubmitted,
		At:        time.Now(),
	})
	assert.NoError(t, err)
}

func TestEncodeExecutionEvent(t *testing.T) {
	var sig types.Signature
	sig[0] = 9
	at := time.UnixMilli(1_700_000_000_000)

	data, err := EncodeExecutionEvent(core.ExecutionEvent{
		Signature:    sig,
		Status:       core.ExecutionFailed,
		Network:      "devnet",
		FeeAsset:     core.FeeAssetDelegatedToken,
		Instructions: 3,
		Error:        "custom program error: 0x1",
		At:           at,
	})
	require.NoError(t, err)

	var s structpb.Struct
	eventType, err := utils.DecodeEvent(data, &s)
	require.NoError(t, err)
	assert.Equal(t, utils.EventTypeExecution, eventType)

	fields := s.AsMap()
	assert.Equal(t, sig.String(), fields["signature"])
	assert.Equal(t, "failed", fields["status"])
	assert.Equal(t, "devnet", fields["network"])
	assert.Equal(t, "delegated_token", fields["fee_asset"])
	assert.Equal(t, float64(3), fields["instructions"])
	assert.Equal(t, "custom program error: 0x1", fields["error"])
	assert.Equal(t, float64(at.UnixMilli()), fields["at_ms"])
}
