package svc

import (
	"context"
	"fmt"
	"time"

	"wallet-core-sol/internal/config"
	"wallet-core-sol/internal/journal"
	"wallet-core-sol/internal/ledger"
	"wallet-core-sol/internal/logic/executor"
	"wallet-core-sol/internal/mq"
	"wallet-core-sol/internal/pkg/logger"
	"wallet-core-sol/internal/service"
	"wallet-core-sol/internal/swap"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// ServiceContext 进程内共享的组件：一个 Facade（唯一的缓存与限流门）、执行器、swap 规划器与对账服务
type ServiceContext struct {
	Config     *config.Config
	Registry   *prometheus.Registry
	Ledger     *ledger.Facade
	Journal    journal.Journal
	Events     executor.EventSink
	Executor   *executor.Executor
	Swap       *swap.Planner
	Reconciler *service.Reconciler

	producer *kafka.Producer
	redis    *redis.Client
}

// NewServiceContext 创建服务上下文
func NewServiceContext(c *config.Config) (*ServiceContext, error) {
	// 1. 链上读取：RPC + 缓存 + 限流
	rpc, err := ledger.NewBloctoRPC(c.Ledger.Endpoint)
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	facadeCfg := c.Ledger.ToFacadeConfig()
	facadeCfg.Registerer = registry
	facade := ledger.NewFacade(rpc, facadeCfg)

	ctx := &ServiceContext{
		Config:   c,
		Registry: registry,
		Ledger:   facade,
	}

	// 2. 提交记录：配置了 Redis 时使用 Redis，否则使用内存
	if c.Journal.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.Journal.RedisAddr,
			Password: c.Journal.RedisPassword,
			DB:       c.Journal.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", c.Journal.RedisAddr, err)
		}
		ctx.redis = rdb
		ctx.Journal = journal.NewRedisJournal(rdb)
	} else {
		ctx.Journal = journal.NewMemoryJournal()
	}

	// 3. 事件通知：配置了 Kafka 时发送执行事件
	ctx.Events = executor.NopEventSink{}
	if c.KafkaProducer.Enabled() {
		producer, err := mq.NewKafkaProducer(c.KafkaProducer.ToKafkaOption())
		if err != nil {
			logger.Errorf("Kafka producer 初始化失败: %v", err)
			ctx.Close()
			return nil, err
		}
		ctx.producer = producer
		ctx.Events = mq.NewKafkaEventSink(producer, c.KafkaProducer.Topic, c.KafkaProducer.Partitions,
			time.Duration(c.KafkaProducer.SendTimeoutMs)*time.Millisecond)
	}

	// 4. 执行器、swap 规划器与对账服务共享同一个 Facade
	ctx.Executor = executor.NewExecutor(facade, ctx.Journal, ctx.Events, c.ToExecutorConfig())
	if c.Swap.BaseURL != "" {
		ctx.Swap = swap.NewPlanner(swap.NewClient(c.Swap.BaseURL, time.Duration(c.Swap.TimeoutMs)*time.Millisecond), facade)
	}
	ctx.Reconciler = service.NewReconciler(facade, ctx.Journal, ctx.Events, c.ToReconcilerConfig())

	logger.Infof("[ServiceContext] 初始化完成, network=%s, endpoint=%s", c.Network, c.Ledger.Endpoint)
	return ctx, nil
}

// Close 关闭服务上下文中的资源
func (ctx *ServiceContext) Close() {
	if ctx.producer != nil {
		ctx.producer.Flush(5000)
		ctx.producer.Close()
	}
	if ctx.redis != nil {
		_ = ctx.redis.Close()
	}
}
