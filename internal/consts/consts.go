package consts

import "time"

const (
	// NativeDecimals 原生资产精度：1 SOL = 10^9 lamports
	NativeDecimals int32 = 9

	// MaxSeedLength seed 派生地址时 seed 的最大 UTF-8 字节数
	MaxSeedLength = 32

	// MaxMemoBytes 单条 memo 指令允许的最大 UTF-8 字节数
	MaxMemoBytes = 566

	// MaxComputeUnitLimit 单笔交易可申请的计算单元上限
	MaxComputeUnitLimit uint32 = 1_400_000

	// StakeAccountSpace stake 账户数据长度（StakeStateV2）
	StakeAccountSpace uint64 = 200
)

// LedgerAccessFacade / TransactionExecutor 默认值
const (
	DefaultCacheTTL            = 30 * time.Second
	DefaultThrottleInterval    = 200 * time.Millisecond
	DefaultConfirmPollInterval = 2 * time.Second
	DefaultConfirmTimeout      = 60 * time.Second
	DefaultRPCTimeout          = 10 * time.Second
)

// NetworkMode 网络模式，取值为封闭集合
type NetworkMode string

const (
	NetworkDevnet  NetworkMode = "devnet"
	NetworkMainnet NetworkMode = "mainnet-beta"
)

func (m NetworkMode) Valid() bool {
	return m == NetworkDevnet || m == NetworkMainnet
}

const DefaultExplorerBaseURL = "https://explorer.solana.com"
