package config

import (
	"fmt"
	"os"
	"time"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/ledger"
	"wallet-core-sol/internal/logic/executor"
	"wallet-core-sol/internal/mq"
	"wallet-core-sol/internal/pkg/logger"
	"wallet-core-sol/internal/service"
	"wallet-core-sol/internal/tools"
	"wallet-core-sol/internal/types"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// LedgerConfig 链上读取（RPC + 缓存 + 限流）配置
type LedgerConfig struct {
	Endpoint           string `yaml:"endpoint"`             // RPC 地址，为空时按 network 选择公共节点
	CacheTTLMs         int    `yaml:"cache_ttl_ms"`         // 缓存有效期（毫秒）
	ThrottleIntervalMs int    `yaml:"throttle_interval_ms"` // 两次出站请求的最小间隔（毫秒）
	RPCTimeoutMs       int    `yaml:"rpc_timeout_ms"`       // 单次请求超时（毫秒）
	CoalesceInFlight   bool   `yaml:"coalesce_in_flight"`   // 合并同 key 的并发 miss
}

func (c *LedgerConfig) ToFacadeConfig() ledger.Config {
	return ledger.Config{
		TTL:              time.Duration(c.CacheTTLMs) * time.Millisecond,
		ThrottleInterval: time.Duration(c.ThrottleIntervalMs) * time.Millisecond,
		RPCTimeout:       time.Duration(c.RPCTimeoutMs) * time.Millisecond,
		CoalesceInFlight: c.CoalesceInFlight,
	}
}

// ExecutorConfig 交易提交与确认配置
type ExecutorConfig struct {
	PollIntervalMs        int    `yaml:"poll_interval_ms"`         // 确认轮询间隔（毫秒）
	ConfirmTimeoutSec     int    `yaml:"confirm_timeout_sec"`      // 确认超时（秒）
	FeeToken              string `yaml:"fee_token"`                // 代付手续费时结算的 token mint，为空表示不支持代付
	FeeReserveLamports    uint64 `yaml:"fee_reserve_lamports"`     // 原生余额不低于该值时用 SOL 付手续费
	SponsorFeeTokenAmount uint64 `yaml:"sponsor_fee_token_amount"` // 代付收取的 token 数量（最小单位）
}

// SwapConfig 聚合器配置
type SwapConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// JournalConfig 为空地址时使用内存 journal
type JournalConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置，brokers 为空时不发送事件
type KafkaProducerConfig struct {
	Brokers       string `yaml:"brokers"`         // Kafka broker 地址，多个用英文逗号分隔
	BatchSize     int    `yaml:"batch_size"`      // 批处理大小（单位字节）
	LingerMs      int    `yaml:"linger_ms"`       // 批处理最大延迟（毫秒）
	Topic         string `yaml:"topic"`           // 执行事件 topic
	Partitions    int    `yaml:"partitions"`      // topic 分区数
	SendTimeoutMs int    `yaml:"send_timeout_ms"` // 单条事件发送并等待 ack 的超时
}

func (c *KafkaProducerConfig) Enabled() bool {
	return c.Brokers != ""
}

func (c *KafkaProducerConfig) ToKafkaOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:   c.Brokers,
		BatchSize: c.BatchSize,
		LingerMs:  c.LingerMs,
		Topics:    []mq.TopicSpec{{Topic: c.Topic, Partitions: c.Partitions}},
	}
}

// Config 主配置
type Config struct {
	LogConf         LogConfig           `yaml:"logger"`
	Network         consts.NetworkMode  `yaml:"network"` // devnet / mainnet-beta
	ExplorerBaseURL string              `yaml:"explorer_base_url"`
	Ledger          LedgerConfig        `yaml:"ledger"`
	Executor        ExecutorConfig      `yaml:"executor"`
	Swap            SwapConfig          `yaml:"swap"`
	Journal         JournalConfig       `yaml:"journal"`
	KafkaProducer   KafkaProducerConfig `yaml:"kafka_producer"`

	Reconciler struct {
		IntervalSec int `yaml:"interval_sec"` // 对账周期（秒）
	} `yaml:"reconciler"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"` // prometheus /metrics 监听地址，为空则不启动
	} `yaml:"metrics"`
}

var defaultEndpoints = map[consts.NetworkMode]string{
	consts.NetworkDevnet:  "https://api.devnet.solana.com",
	consts.NetworkMainnet: "https://api.mainnet-beta.solana.com",
}

// Load 读取 YAML 配置并补全默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// MustLoad 与 Load 相同，失败时 panic
func MustLoad(path string) *Config {
	c, err := Load(path)
	if err != nil {
		panic(err)
	}
	return c
}

func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Network == "" {
		c.Network = consts.NetworkDevnet
	}
	if c.ExplorerBaseURL == "" {
		c.ExplorerBaseURL = consts.DefaultExplorerBaseURL
	}
	if c.Ledger.Endpoint == "" {
		c.Ledger.Endpoint = defaultEndpoints[c.Network]
	}
	if c.Ledger.CacheTTLMs <= 0 {
		c.Ledger.CacheTTLMs = int(consts.DefaultCacheTTL / time.Millisecond)
	}
	if c.Ledger.ThrottleIntervalMs <= 0 {
		c.Ledger.ThrottleIntervalMs = int(consts.DefaultThrottleInterval / time.Millisecond)
	}
	if c.Ledger.RPCTimeoutMs <= 0 {
		c.Ledger.RPCTimeoutMs = int(consts.DefaultRPCTimeout / time.Millisecond)
	}
	if c.Executor.PollIntervalMs <= 0 {
		c.Executor.PollIntervalMs = int(consts.DefaultConfirmPollInterval / time.Millisecond)
	}
	if c.Executor.ConfirmTimeoutSec <= 0 {
		c.Executor.ConfirmTimeoutSec = int(consts.DefaultConfirmTimeout / time.Second)
	}
	if c.Swap.TimeoutMs <= 0 {
		c.Swap.TimeoutMs = 10_000
	}
	if c.KafkaProducer.Topic == "" {
		c.KafkaProducer.Topic = "wallet-execution-events"
	}
	if c.KafkaProducer.Partitions <= 0 {
		c.KafkaProducer.Partitions = 1
	}
	if c.KafkaProducer.SendTimeoutMs <= 0 {
		c.KafkaProducer.SendTimeoutMs = 5000
	}
	if c.Reconciler.IntervalSec <= 0 {
		c.Reconciler.IntervalSec = 30
	}
}

// Validate 网络模式必须是封闭集合中的值，fee_token 必须是已知精度的 token
func (c *Config) Validate() error {
	if !c.Network.Valid() {
		return fmt.Errorf("invalid network %q, want %q or %q", c.Network, consts.NetworkDevnet, consts.NetworkMainnet)
	}
	if c.Executor.FeeToken != "" {
		feeToken, err := types.ParsePubkey(c.Executor.FeeToken)
		if err != nil {
			return fmt.Errorf("executor.fee_token: %w", err)
		}
		if _, ok := tools.KnownTokenDecimals[feeToken]; !ok {
			return fmt.Errorf("executor.fee_token: unsupported fee token %s", feeToken)
		}
	}
	return nil
}

func (c *Config) ToExecutorConfig() executor.Config {
	cfg := executor.Config{
		NetworkMode:           c.Network,
		ExplorerBaseURL:       c.ExplorerBaseURL,
		PollInterval:          time.Duration(c.Executor.PollIntervalMs) * time.Millisecond,
		ConfirmTimeout:        time.Duration(c.Executor.ConfirmTimeoutSec) * time.Second,
		FeeReserveLamports:    c.Executor.FeeReserveLamports,
		SponsorFeeTokenAmount: c.Executor.SponsorFeeTokenAmount,
	}
	if c.Executor.FeeToken != "" {
		cfg.FeeToken, _ = types.ParsePubkey(c.Executor.FeeToken)
	}
	return cfg
}

func (c *Config) ToReconcilerConfig() service.ReconcilerConfig {
	return service.ReconcilerConfig{
		Interval:    time.Duration(c.Reconciler.IntervalSec) * time.Second,
		NetworkMode: c.Network,
	}
}
