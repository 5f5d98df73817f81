package decomposer

import (
	"context"
	"encoding/base64"
	"fmt"

	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/tools"
	"wallet-core-sol/internal/types"
)

// LookupTableSource 按地址获取 lookup table 内容；表不存在时返回 (nil, nil)
type LookupTableSource interface {
	GetAddressLookupTable(ctx context.Context, table types.Pubkey) ([]types.Pubkey, error)
}

// StaticTables 内存中的 lookup table 集合，用于测试或已预取的场景
type StaticTables map[types.Pubkey][]types.Pubkey

func (s StaticTables) GetAddressLookupTable(_ context.Context, table types.Pubkey) ([]types.Pubkey, error) {
	return s[table], nil
}

// resolvedKey 完整账户表中的一项
type resolvedKey struct {
	address    types.Pubkey
	isSigner   bool
	isWritable bool
}

// fetchTables 拉取 envelope 引用的全部 lookup table 内容
func fetchTables(ctx context.Context, env *Envelope, source LookupTableSource) ([]core.LookupTableRef, error) {
	if len(env.Lookups) == 0 {
		return nil, nil
	}
	if source == nil {
		return nil, fmt.Errorf("%w: transaction references %d lookup tables but no source given", core.ErrMalformedTransaction, len(env.Lookups))
	}
	refs := make([]core.LookupTableRef, 0, len(env.Lookups))
	for _, l := range env.Lookups {
		addresses, err := source.GetAddressLookupTable(ctx, l.Table)
		if err != nil {
			return nil, fmt.Errorf("fetch lookup table %s: %w", l.Table, err)
		}
		if addresses == nil {
			return nil, fmt.Errorf("%w: lookup table %s not found", core.ErrMalformedTransaction, l.Table)
		}
		refs = append(refs, core.LookupTableRef{TableAddress: l.Table, ResolvedAddresses: addresses})
	}
	return refs, nil
}

// buildFullAccountKeys 构造完整账户表：
// 静态账户 + 所有表的 writable 索引（按声明顺序）+ 所有表的 readonly 索引（按声明顺序）。
func buildFullAccountKeys(env *Envelope, tables []core.LookupTableRef) ([]resolvedKey, error) {
	total := len(env.StaticKeys)
	for _, l := range env.Lookups {
		total += len(l.WritableIndexes) + len(l.ReadonlyIndexes)
	}
	keys := make([]resolvedKey, 0, total)

	for i, key := range env.StaticKeys {
		isSigner, isWritable := env.staticFlags(i)
		keys = append(keys, resolvedKey{address: key, isSigner: isSigner, isWritable: isWritable})
	}

	appendLoaded := func(writable bool) error {
		for t, l := range env.Lookups {
			indexes := l.ReadonlyIndexes
			if writable {
				indexes = l.WritableIndexes
			}
			resolved := tables[t].ResolvedAddresses
			for _, idx := range indexes {
				if int(idx) >= len(resolved) {
					return fmt.Errorf("%w: lookup index %d out of range for table %s (len=%d)",
						core.ErrMalformedTransaction, idx, l.Table, len(resolved))
				}
				keys = append(keys, resolvedKey{address: resolved[idx], isWritable: writable})
			}
		}
		return nil
	}
	if err := appendLoaded(true); err != nil {
		return nil, err
	}
	if err := appendLoaded(false); err != nil {
		return nil, err
	}
	return keys, nil
}

// resolveInstructions 将编译后的索引还原为账户引用，账户顺序与原指令一致
func resolveInstructions(env *Envelope, keys []resolvedKey) ([]core.Instruction, error) {
	out := make([]core.Instruction, 0, len(env.Instructions))
	for i, cix := range env.Instructions {
		if int(cix.ProgramIDIndex) >= len(keys) {
			return nil, fmt.Errorf("%w: instruction %d program index %d out of range (%d keys)",
				core.ErrMalformedTransaction, i, cix.ProgramIDIndex, len(keys))
		}

		accounts := make([]core.AccountRef, 0, len(cix.Accounts))
		seen := make(map[types.Pubkey]core.AccountRef, len(cix.Accounts))
		for _, idx := range cix.Accounts {
			if int(idx) >= len(keys) {
				return nil, fmt.Errorf("%w: instruction %d account index %d out of range (%d keys)",
					core.ErrMalformedTransaction, i, idx, len(keys))
			}
			k := keys[idx]
			ref := core.AccountRef{Address: k.address, IsSigner: k.isSigner, IsWritable: k.isWritable}
			if prev, ok := seen[k.address]; ok && prev != ref {
				return nil, fmt.Errorf("%w: instruction %d has conflicting flags for %s",
					core.ErrMalformedTransaction, i, k.address)
			}
			seen[k.address] = ref
			accounts = append(accounts, ref)
		}

		data := make([]byte, len(cix.Data))
		copy(data, cix.Data)
		out = append(out, core.Instruction{
			ProgramID: keys[cix.ProgramIDIndex].address,
			Accounts:  accounts,
			Data:      data,
		})
	}
	return out, nil
}

// Decompose 将聚合器返回的序列化交易还原为指令列表。
// 索引越界、lookup table 缺失、未知版本或同一指令内账户属性冲突均返回 ErrMalformedTransaction。
func Decompose(ctx context.Context, raw []byte, tables LookupTableSource) ([]core.Instruction, error) {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return DecomposeEnvelope(ctx, env, tables)
}

// DecomposeEnvelope 对已解码的 envelope 执行索引还原
func DecomposeEnvelope(ctx context.Context, env *Envelope, tables LookupTableSource) ([]core.Instruction, error) {
	refs, err := fetchTables(ctx, env, tables)
	if err != nil {
		return nil, err
	}
	keys, err := buildFullAccountKeys(env, refs)
	if err != nil {
		return nil, err
	}
	return resolveInstructions(env, keys)
}

// DecomposeBase64 解析 base64 编码的交易（聚合器 HTTP 接口返回格式）
func DecomposeBase64(ctx context.Context, encoded string, tables LookupTableSource) ([]core.Instruction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", core.ErrMalformedTransaction, err)
	}
	return Decompose(ctx, raw, tables)
}

// StripComputeBudget 移除 compute budget 指令，由 signer 统一配置计算预算
func StripComputeBudget(instrs []core.Instruction) []core.Instruction {
	out := make([]core.Instruction, 0, len(instrs))
	for _, ix := range instrs {
		if tools.IsComputeBudgetProgram(ix.ProgramID) {
			continue
		}
		out = append(out, ix)
	}
	return out
}
