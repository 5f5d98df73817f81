package tools

import (
	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/types"
)

const (
	WSOLDecimals = 9
	USDCDecimals = 6
	USDTDecimals = 6
)

// KnownTokenDecimals 常用 token 的精度，避免为手续费 token 额外查询 mint
var KnownTokenDecimals = map[types.Pubkey]uint8{
	consts.WSOLMint: WSOLDecimals,
	consts.USDCMint: USDCDecimals,
	consts.USDTMint: USDTDecimals,
}

// IsSPLTokenProgram 判断一个 ProgramId 是否为标准的 SPL Token 程序。
// 支持 Token v1（Tokenkeg...）和 Token-2022（Tokenz...）
func IsSPLTokenProgram(programId types.Pubkey) bool {
	return programId == consts.TokenProgram || programId == consts.TokenProgram2022
}

// IsComputeBudgetProgram 计算预算指令由 signer 统一注入，外部交易中的需要剥离
func IsComputeBudgetProgram(programId types.Pubkey) bool {
	return programId == consts.ComputeBudgetProgram
}
