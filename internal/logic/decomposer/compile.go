package decomposer

import (
	"context"
	"fmt"

	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"

	"github.com/gagliardetto/solana-go"
)

// CompileContext 重新编译所需的上下文：与原 envelope 相同的静态账户表和 lookup 引用
type CompileContext struct {
	Version         Version
	Header          Header
	StaticKeys      []types.Pubkey
	RecentBlockhash types.Hash
	Lookups         []Lookup
	Tables          []core.LookupTableRef
}

// NewCompileContext 由 envelope 和已解析的 lookup table 构造 CompileContext
func NewCompileContext(ctx context.Context, env *Envelope, source LookupTableSource) (*CompileContext, error) {
	refs, err := fetchTables(ctx, env, source)
	if err != nil {
		return nil, err
	}
	return &CompileContext{
		Version:         env.Version,
		Header:          env.Header,
		StaticKeys:      env.StaticKeys,
		RecentBlockhash: env.RecentBlockhash,
		Lookups:         env.Lookups,
		Tables:          refs,
	}, nil
}

func (c *CompileContext) envelope() *Envelope {
	return &Envelope{Version: c.Version, Header: c.Header, StaticKeys: c.StaticKeys, Lookups: c.Lookups}
}

// Compile 将指令列表按 CompileContext 重新编码为账户索引。
// 地址取完整账户表中首次出现的位置；不在表中或属性与表不一致时返回错误。
func Compile(instrs []core.Instruction, cc *CompileContext) ([]CompiledInstruction, error) {
	keys, err := buildFullAccountKeys(cc.envelope(), cc.Tables)
	if err != nil {
		return nil, err
	}
	index := make(map[types.Pubkey]int, len(keys))
	for i, k := range keys {
		if _, ok := index[k.address]; !ok {
			index[k.address] = i
		}
	}

	out := make([]CompiledInstruction, 0, len(instrs))
	for n, ix := range instrs {
		programIdx, ok := index[ix.ProgramID]
		if !ok {
			return nil, fmt.Errorf("instruction %d: program %s not in account table", n, ix.ProgramID)
		}
		accounts := make([]uint16, 0, len(ix.Accounts))
		for _, acc := range ix.Accounts {
			idx, ok := index[acc.Address]
			if !ok {
				return nil, fmt.Errorf("instruction %d: account %s not in account table", n, acc.Address)
			}
			k := keys[idx]
			if k.isSigner != acc.IsSigner || k.isWritable != acc.IsWritable {
				return nil, fmt.Errorf("instruction %d: flags for %s differ from account table", n, acc.Address)
			}
			accounts = append(accounts, uint16(idx))
		}
		data := make([]byte, len(ix.Data))
		copy(data, ix.Data)
		out = append(out, CompiledInstruction{
			ProgramIDIndex: uint16(programIdx),
			Accounts:       accounts,
			Data:           data,
		})
	}
	return out, nil
}

// EncodeCompiled 将编译结果序列化为消息字节（不含签名区）
func EncodeCompiled(cc *CompileContext, compiled []CompiledInstruction) ([]byte, error) {
	msg := solana.Message{
		Header: solana.MessageHeader{
			NumRequiredSignatures:       cc.Header.NumRequiredSignatures,
			NumReadonlySignedAccounts:   cc.Header.NumReadonlySignedAccounts,
			NumReadonlyUnsignedAccounts: cc.Header.NumReadonlyUnsignedAccounts,
		},
		RecentBlockhash: solana.Hash(cc.RecentBlockhash),
	}
	for _, key := range cc.StaticKeys {
		msg.AccountKeys = append(msg.AccountKeys, solana.PublicKey(key))
	}
	for _, cix := range compiled {
		msg.Instructions = append(msg.Instructions, solana.CompiledInstruction{
			ProgramIDIndex: cix.ProgramIDIndex,
			Accounts:       cix.Accounts,
			Data:           cix.Data,
		})
	}

	switch cc.Version {
	case VersionLegacy:
		msg.SetVersion(solana.MessageVersionLegacy)
	case VersionV0:
		msg.SetVersion(solana.MessageVersionV0)
		for _, l := range cc.Lookups {
			msg.AddressTableLookups = append(msg.AddressTableLookups, solana.MessageAddressTableLookup{
				AccountKey:      solana.PublicKey(l.Table),
				WritableIndexes: l.WritableIndexes,
				ReadonlyIndexes: l.ReadonlyIndexes,
			})
		}
	default:
		return nil, fmt.Errorf("%w: unsupported version %s", core.ErrMalformedTransaction, cc.Version)
	}
	return msg.MarshalBinary()
}
