package journal

import (
	"context"
	"fmt"
	"time"

	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"

	"github.com/redis/go-redis/v9"
)

// Redis key 前缀
const (
	statusPrefix = "journal:sig"
	pendingKey   = "journal:pending"
)

// 每种状态的 TTL（可调）
const (
	pendingTTL   = 7 * 24 * time.Hour
	confirmedTTL = 24 * time.Hour
	failedTTL    = 3 * 24 * time.Hour
)

// RedisJournal 基于 Redis 的 Journal：签名状态 key + pending 集合
type RedisJournal struct {
	rdb *redis.Client
}

func NewRedisJournal(rdb *redis.Client) *RedisJournal {
	return &RedisJournal{rdb: rdb}
}

func (r *RedisJournal) getKey(sig types.Signature) string {
	return fmt.Sprintf("%s:%s", statusPrefix, sig)
}

func (r *RedisJournal) getTTL(status core.ExecutionStatus) time.Duration {
	switch status {
	case core.ExecutionConfirmed:
		return confirmedTTL
	case core.ExecutionFailed:
		return failedTTL
	default:
		return pendingTTL
	}
}

// recordScript 在一次原子操作里完成终态检查与写入：
// KEYS[1]=状态 key, KEYS[2]=pending 集合
// ARGV[1]=新状态, ARGV[2]=TTL(ms), ARGV[3]=新状态是否终态, ARGV[4]=是否 pending, ARGV[5]=签名, ARGV[6..]=终态取值
var recordScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if ARGV[3] == '0' and cur then
	for i = 6, #ARGV do
		if cur == ARGV[i] then
			return 0
		end
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
if ARGV[4] == '1' then
	redis.call('SADD', KEYS[2], ARGV[5])
else
	redis.call('SREM', KEYS[2], ARGV[5])
end
return 1
`)

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Record 写入状态；终态时同时从 pending 集合移除。已是终态的记录不会被回退为 pending，
// 检查与写入在同一个 Lua 脚本中执行，并发写入也不会覆盖终态。
func (r *RedisJournal) Record(ctx context.Context, sig types.Signature, status core.ExecutionStatus) error {
	keys := []string{r.getKey(sig), pendingKey}
	args := []any{
		string(status),
		r.getTTL(status).Milliseconds(),
		flag(status.Terminal()),
		flag(status.Pending()),
		sig.String(),
		string(core.ExecutionConfirmed),
		string(core.ExecutionFailed),
	}
	if err := recordScript.Run(ctx, r.rdb, keys, args...).Err(); err != nil {
		return fmt.Errorf("redis journal record error: %w", err)
	}
	return nil
}

func (r *RedisJournal) Status(ctx context.Context, sig types.Signature) (core.ExecutionStatus, error) {
	val, err := r.rdb.Get(ctx, r.getKey(sig)).Result()
	switch {
	case err == redis.Nil:
		return core.ExecutionUnknown, nil
	case err != nil:
		return core.ExecutionUnknown, fmt.Errorf("redis get error: %w", err)
	}
	switch st := core.ExecutionStatus(val); st {
	case core.ExecutionSubmitted, core.ExecutionConfirmed, core.ExecutionFailed, core.ExecutionTimeout:
		return st, nil
	default:
		return core.ExecutionUnknown, nil // 容错处理
	}
}

// Pending 状态 key 已过期的签名会从集合中顺带清理
func (r *RedisJournal) Pending(ctx context.Context) ([]types.Signature, error) {
	members, err := r.rdb.SMembers(ctx, pendingKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers error: %w", err)
	}
	out := make([]types.Signature, 0, len(members))
	for _, m := range members {
		sig, err := types.SignatureFromBase58(m)
		if err != nil {
			_ = r.rdb.SRem(ctx, pendingKey, m).Err()
			continue
		}
		st, err := r.Status(ctx, sig)
		if err != nil {
			return nil, err
		}
		if !st.Pending() {
			_ = r.rdb.SRem(ctx, pendingKey, m).Err()
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}
