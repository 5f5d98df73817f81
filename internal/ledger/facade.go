package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wallet-core-sol/internal/cache"
	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/pkg/logger"
	"wallet-core-sol/internal/tools"
	"wallet-core-sol/internal/types"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// 缓存 key 前缀，格式为 {prefix}:{address}
const (
	keyBalance      = "balance"
	keyToken        = "token"
	keyAccount      = "account"
	keyTokenAccount = "tokens"
	keyLookupTable  = "alt"
	keyEpoch        = "epoch"
)

// Config Facade 配置，TTL 对整个实例生效
type Config struct {
	TTL              time.Duration
	ThrottleInterval time.Duration
	// CoalesceInFlight 为 true 时，同一个 key 的并发 miss 合并为一次请求；默认关闭
	CoalesceInFlight bool
	// RPCTimeout 单次出站请求的超时（不含限流等待）
	RPCTimeout time.Duration
	Clock      clockwork.Clock
	Registerer prometheus.Registerer
}

// Facade 进程内唯一的链上读入口：按 key 做 TTL 缓存，所有出站请求经过同一个限流门
type Facade struct {
	rpc        RPC
	rpcTimeout time.Duration
	cache      *cache.TTLCache[any]
	throttle   *Throttle
	group      *singleflight.Group
	metrics    *Metrics
}

func NewFacade(rpc RPC, cfg Config) *Facade {
	if cfg.TTL <= 0 {
		cfg.TTL = consts.DefaultCacheTTL
	}
	if cfg.ThrottleInterval <= 0 {
		cfg.ThrottleInterval = consts.DefaultThrottleInterval
	}
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = consts.DefaultRPCTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	f := &Facade{
		rpc:        rpc,
		rpcTimeout: cfg.RPCTimeout,
		cache:      cache.NewTTLCache[any](cfg.TTL, cfg.Clock),
		throttle:   NewThrottle(cfg.ThrottleInterval, cfg.Clock),
		metrics:    NewMetrics(cfg.Registerer),
	}
	if cfg.CoalesceInFlight {
		f.group = &singleflight.Group{}
	}
	return f
}

func (f *Facade) Metrics() *Metrics {
	return f.metrics
}

// ThrottledCall 经过全局限流门后执行 fn；失败时包装为 core.NetworkError，不做重试
func ThrottledCall[T any](ctx context.Context, f *Facade, method string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	waited, err := f.throttle.Wait(ctx)
	if err != nil {
		return zero, err
	}
	f.metrics.ThrottleWaits.Observe(waited.Seconds())

	callCtx, cancel := context.WithTimeout(ctx, f.rpcTimeout)
	defer cancel()
	v, err := fn(callCtx)
	if err != nil {
		f.metrics.RPCCalls.WithLabelValues(method, "error").Inc()
		logger.Warnf("[LedgerFacade] %s failed: %v", method, err)
		return zero, &core.NetworkError{Op: method, Err: err}
	}
	f.metrics.RPCCalls.WithLabelValues(method, "ok").Inc()
	return v, nil
}

// cached 命中缓存直接返回，不触发网络请求；未命中时经限流后请求并写入缓存。
// 开启 CoalesceInFlight 时，合并后的请求与发起者的 ctx 解绑（仍受单次 RPC 超时约束），
// 某个调用方取消只会让它自己提前返回。
func cached[T any](ctx context.Context, f *Facade, kind, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := f.cache.Get(key); ok {
		f.metrics.CacheHits.WithLabelValues(kind).Inc()
		return v.(T), nil
	}
	f.metrics.CacheMisses.WithLabelValues(kind).Inc()

	load := func(ctx context.Context) (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		f.cache.Set(key, v)
		return v, nil
	}

	if f.group == nil {
		v, err := load(ctx)
		if err != nil {
			return zero, err
		}
		return v.(T), nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key, func() (any, error) {
		return load(loadCtx)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func cacheKey(prefix string, addr fmt.Stringer) string {
	return prefix + ":" + addr.String()
}

// GetBalance 原生币余额（lamports）
func (f *Facade) GetBalance(ctx context.Context, addr types.Pubkey) (uint64, error) {
	return cached(ctx, f, keyBalance, cacheKey(keyBalance, addr), func(ctx context.Context) (uint64, error) {
		return ThrottledCall(ctx, f, "getBalance", func(ctx context.Context) (uint64, error) {
			return f.rpc.GetBalance(ctx, addr)
		})
	})
}

// GetTokenBalance token 账户余额；账户不存在时返回 (nil, nil)
func (f *Facade) GetTokenBalance(ctx context.Context, tokenAccount types.Pubkey) (*TokenAmount, error) {
	return cached(ctx, f, keyToken, cacheKey(keyToken, tokenAccount), func(ctx context.Context) (*TokenAmount, error) {
		return ThrottledCall(ctx, f, "getTokenAccountBalance", func(ctx context.Context) (*TokenAmount, error) {
			return f.rpc.GetTokenAccountBalance(ctx, tokenAccount)
		})
	})
}

// GetAccountInfo 账户不存在时返回 (nil, nil)
func (f *Facade) GetAccountInfo(ctx context.Context, addr types.Pubkey) (*AccountInfo, error) {
	return cached(ctx, f, keyAccount, cacheKey(keyAccount, addr), func(ctx context.Context) (*AccountInfo, error) {
		return ThrottledCall(ctx, f, "getAccountInfo", func(ctx context.Context) (*AccountInfo, error) {
			return f.rpc.GetAccountInfo(ctx, addr)
		})
	})
}

var defaultTokenPrograms = []types.Pubkey{consts.TokenProgram, consts.TokenProgram2022}

// GetTokenAccountsByOwner 查询 owner 名下的 token 账户；programs 为空时查询 Token 与 Token2022 两个程序。
// programs 只能是 SPL Token 程序，否则返回 ErrInvalidAddress。
func (f *Facade) GetTokenAccountsByOwner(ctx context.Context, owner types.Pubkey, programs ...types.Pubkey) ([]TokenAccount, error) {
	key := cacheKey(keyTokenAccount, owner)
	if len(programs) == 0 {
		programs = defaultTokenPrograms
	} else {
		for _, program := range programs {
			if !tools.IsSPLTokenProgram(program) {
				return nil, fmt.Errorf("%w: %s is not a token program", core.ErrInvalidAddress, program)
			}
		}
		// 自定义程序列表单独缓存，key 仍以 owner 结尾以便 Invalidate
		key = keyTokenAccount + ":" + programsKey(programs) + ":" + owner.String()
	}
	return cached(ctx, f, keyTokenAccount, key, func(ctx context.Context) ([]TokenAccount, error) {
		var all []TokenAccount
		for _, program := range programs {
			accounts, err := ThrottledCall(ctx, f, "getTokenAccountsByOwner", func(ctx context.Context) ([]TokenAccount, error) {
				return f.rpc.GetTokenAccountsByOwner(ctx, owner, program)
			})
			if err != nil {
				return nil, err
			}
			all = append(all, accounts...)
		}
		return all, nil
	})
}

func programsKey(programs []types.Pubkey) string {
	parts := make([]string, 0, len(programs))
	for _, p := range programs {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, ",")
}

// GetSignatureStatus 不缓存，但同样经过限流门；签名未知时返回 (nil, nil)
func (f *Facade) GetSignatureStatus(ctx context.Context, sig types.Signature) (*SignatureStatus, error) {
	return ThrottledCall(ctx, f, "getSignatureStatuses", func(ctx context.Context) (*SignatureStatus, error) {
		return f.rpc.GetSignatureStatus(ctx, sig)
	})
}

// GetAddressLookupTable 返回 lookup table 的地址列表；账户不存在时返回 (nil, nil)
func (f *Facade) GetAddressLookupTable(ctx context.Context, table types.Pubkey) ([]types.Pubkey, error) {
	return cached(ctx, f, keyLookupTable, cacheKey(keyLookupTable, table), func(ctx context.Context) ([]types.Pubkey, error) {
		info, err := ThrottledCall(ctx, f, "getAccountInfo", func(ctx context.Context) (*AccountInfo, error) {
			return f.rpc.GetAccountInfo(ctx, table)
		})
		if err != nil {
			return nil, err
		}
		if info == nil {
			return nil, nil
		}
		if info.Owner != consts.AddressLookupTableProgram {
			return nil, fmt.Errorf("%w: %s is owned by %s, not the lookup table program", core.ErrMalformedTransaction, table, info.Owner)
		}
		addresses, err := decodeLookupTable(info.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrMalformedTransaction, err)
		}
		return addresses, nil
	})
}

func (f *Facade) currentEpoch(ctx context.Context) (uint64, error) {
	return cached(ctx, f, keyEpoch, keyEpoch, func(ctx context.Context) (uint64, error) {
		return ThrottledCall(ctx, f, "getEpochInfo", f.rpc.GetEpoch)
	})
}

// GetStakeAccount 读取并解析 stake 账户，按当前 epoch 判断状态；账户不存在时返回 (nil, nil)
func (f *Facade) GetStakeAccount(ctx context.Context, addr types.Pubkey) (*core.StakeAccountSummary, error) {
	info, err := f.GetAccountInfo(ctx, addr)
	if err != nil || info == nil {
		return nil, err
	}
	if info.Owner != consts.StakeProgram {
		return nil, fmt.Errorf("%w: %s is owned by %s", ErrNotStakeAccount, addr, info.Owner)
	}
	epoch, err := f.currentEpoch(ctx)
	if err != nil {
		return nil, err
	}
	return buildStakeSummary(addr, info, epoch)
}

// Invalidate 删除与 addr 相关的全部缓存
func (f *Facade) Invalidate(addr types.Pubkey) {
	n := f.cache.DeleteSuffix(":" + addr.String())
	logger.Debugf("[LedgerFacade] invalidate %s, dropped %d entries", addr, n)
}

// InvalidateAll 清空缓存（例如用户下拉刷新）
func (f *Facade) InvalidateAll() {
	f.cache.Clear()
	logger.Debugf("[LedgerFacade] cache cleared")
}
