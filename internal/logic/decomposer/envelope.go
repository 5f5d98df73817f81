package decomposer

import (
	"fmt"

	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Version 交易 envelope 版本，封闭集合：Legacy | V0
type Version int

const (
	VersionLegacy Version = iota
	VersionV0
)

func (v Version) String() string {
	switch v {
	case VersionLegacy:
		return "legacy"
	case VersionV0:
		return "v0"
	default:
		return fmt.Sprintf("version(%d)", int(v))
	}
}

// versionPrefix 版本化消息的首字节最高位为 1，低 7 位为版本号
const versionPrefix = 0x80

// Header 消息头，决定静态账户的 signer / writable 属性
type Header struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// Lookup 对一张 Address Lookup Table 的引用
type Lookup struct {
	Table           types.Pubkey
	WritableIndexes []uint8
	ReadonlyIndexes []uint8
}

// CompiledInstruction 按账户索引编码的指令
type CompiledInstruction struct {
	ProgramIDIndex uint16
	Accounts       []uint16
	Data           []byte
}

// Envelope 解码后的交易外壳：静态账户表 + lookup 引用 + 编译后的指令
type Envelope struct {
	Version         Version
	Signatures      []types.Signature
	Header          Header
	StaticKeys      []types.Pubkey
	RecentBlockhash types.Hash
	Lookups         []Lookup
	Instructions    []CompiledInstruction
}

// LookupTables 返回 envelope 引用的全部 lookup table 地址（声明顺序）
func (e *Envelope) LookupTables() []types.Pubkey {
	out := make([]types.Pubkey, 0, len(e.Lookups))
	for _, l := range e.Lookups {
		out = append(out, l.Table)
	}
	return out
}

// peekVersion 跳过签名区，读取消息首字节判断版本
func peekVersion(raw []byte) (Version, error) {
	dec := bin.NewBinDecoder(raw)
	numSigs, err := dec.ReadCompactU16()
	if err != nil {
		return 0, fmt.Errorf("%w: read signature count: %v", core.ErrMalformedTransaction, err)
	}
	for i := 0; i < numSigs; i++ {
		if _, err := dec.ReadNBytes(64); err != nil {
			return 0, fmt.Errorf("%w: truncated signature %d: %v", core.ErrMalformedTransaction, i, err)
		}
	}
	head, err := dec.Peek(1)
	if err != nil || len(head) == 0 {
		return 0, fmt.Errorf("%w: truncated before message", core.ErrMalformedTransaction)
	}
	first := head[0]
	if first&versionPrefix == 0 {
		return VersionLegacy, nil
	}
	switch first &^ versionPrefix {
	case 0:
		return VersionV0, nil
	default:
		return 0, fmt.Errorf("%w: unsupported message version %d", core.ErrMalformedTransaction, first&^versionPrefix)
	}
}

// DecodeEnvelope 解析序列化交易（compact-u16 签名数 + 签名 + 消息）
func DecodeEnvelope(raw []byte) (_ *Envelope, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: decode panic: %v", core.ErrMalformedTransaction, r)
		}
	}()

	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", core.ErrMalformedTransaction)
	}
	version, err := peekVersion(raw)
	if err != nil {
		return nil, err
	}

	dec := bin.NewBinDecoder(raw)
	tx, err := solana.TransactionFromDecoder(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedTransaction, err)
	}
	if dec.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", core.ErrMalformedTransaction, dec.Remaining())
	}
	msg := tx.Message

	env := &Envelope{
		Version: version,
		Header: Header{
			NumRequiredSignatures:       msg.Header.NumRequiredSignatures,
			NumReadonlySignedAccounts:   msg.Header.NumReadonlySignedAccounts,
			NumReadonlyUnsignedAccounts: msg.Header.NumReadonlyUnsignedAccounts,
		},
		RecentBlockhash: types.Hash(msg.RecentBlockhash),
		StaticKeys:      make([]types.Pubkey, len(msg.AccountKeys)),
		Signatures:      make([]types.Signature, len(tx.Signatures)),
		Instructions:    make([]CompiledInstruction, len(msg.Instructions)),
	}
	for i, sig := range tx.Signatures {
		env.Signatures[i] = types.Signature(sig)
	}
	for i, key := range msg.AccountKeys {
		env.StaticKeys[i] = types.Pubkey(key)
	}
	for i, ix := range msg.Instructions {
		accounts := make([]uint16, len(ix.Accounts))
		copy(accounts, ix.Accounts)
		data := make([]byte, len(ix.Data))
		copy(data, ix.Data)
		env.Instructions[i] = CompiledInstruction{
			ProgramIDIndex: ix.ProgramIDIndex,
			Accounts:       accounts,
			Data:           data,
		}
	}
	if version == VersionV0 {
		for _, l := range msg.AddressTableLookups {
			env.Lookups = append(env.Lookups, Lookup{
				Table:           types.Pubkey(l.AccountKey),
				WritableIndexes: append([]uint8(nil), l.WritableIndexes...),
				ReadonlyIndexes: append([]uint8(nil), l.ReadonlyIndexes...),
			})
		}
	}

	if err := env.validateHeader(); err != nil {
		return nil, err
	}
	return env, nil
}

func (e *Envelope) validateHeader() error {
	n := len(e.StaticKeys)
	h := e.Header
	if n == 0 {
		return fmt.Errorf("%w: no static account keys", core.ErrMalformedTransaction)
	}
	if int(h.NumRequiredSignatures) > n ||
		h.NumReadonlySignedAccounts > h.NumRequiredSignatures ||
		int(h.NumReadonlyUnsignedAccounts) > n-int(h.NumRequiredSignatures) {
		return fmt.Errorf("%w: header %+v inconsistent with %d static keys", core.ErrMalformedTransaction, h, n)
	}
	return nil
}

// staticFlags 按消息头推导第 i 个静态账户的 signer / writable
func (e *Envelope) staticFlags(i int) (isSigner, isWritable bool) {
	h := e.Header
	required := int(h.NumRequiredSignatures)
	if i < required {
		return true, i < required-int(h.NumReadonlySignedAccounts)
	}
	return false, i < len(e.StaticKeys)-int(h.NumReadonlyUnsignedAccounts)
}
