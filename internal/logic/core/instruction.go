package core

import (
	"bytes"

	"wallet-core-sol/internal/types"
)

// AccountRef 表示指令中涉及的一个账户及其签名 / 可写属性
type AccountRef struct {
	Address    types.Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction 表示链上的一条原始指令。
// Accounts 的顺序由目标程序定义，任何组件都不得重排。
type Instruction struct {
	ProgramID types.Pubkey // 所调用的程序地址（例如 SystemProgram）
	Accounts  []AccountRef // 指令涉及的账户列表，保持原始顺序
	Data      []byte       // 指令数据（原始字节）
}

// Clone 深拷贝，避免调用方修改共享切片
func (ix Instruction) Clone() Instruction {
	accounts := make([]AccountRef, len(ix.Accounts))
	copy(accounts, ix.Accounts)
	return Instruction{
		ProgramID: ix.ProgramID,
		Accounts:  accounts,
		Data:      bytes.Clone(ix.Data),
	}
}

func (ix Instruction) Equal(other Instruction) bool {
	if ix.ProgramID != other.ProgramID || len(ix.Accounts) != len(other.Accounts) {
		return false
	}
	for i := range ix.Accounts {
		if ix.Accounts[i] != other.Accounts[i] {
			return false
		}
	}
	return bytes.Equal(ix.Data, other.Data)
}

// LookupTableRef 表示一次解析过程中使用的 Address Lookup Table 内容，仅在解析期间存在
type LookupTableRef struct {
	TableAddress      types.Pubkey
	ResolvedAddresses []types.Pubkey
}

func cloneInstructions(src []Instruction) []Instruction {
	out := make([]Instruction, len(src))
	for i, ix := range src {
		out[i] = ix.Clone()
	}
	return out
}
