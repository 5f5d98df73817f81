package consts

import "wallet-core-sol/internal/types"

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	// Programs
	SystemProgramStr             = "11111111111111111111111111111111"
	StakeProgramStr              = "Stake11111111111111111111111111111111111111"
	MemoProgramStr               = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
	TokenProgramStr              = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	TokenProgram2022Str          = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	AssociatedTokenProgramStr    = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	ComputeBudgetProgramStr      = "ComputeBudget111111111111111111111111111111"
	AddressLookupTableProgramStr = "AddressLookupTab1e1111111111111111111111111"

	// 代付手续费时默认使用的计价币
	WSOLMintStr = "So11111111111111111111111111111111111111112"
	USDCMintStr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMintStr = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

var (
	// Programs
	SystemProgram             = types.PubkeyFromBase58(SystemProgramStr)
	StakeProgram              = types.PubkeyFromBase58(StakeProgramStr)
	MemoProgram               = types.PubkeyFromBase58(MemoProgramStr)
	TokenProgram              = types.PubkeyFromBase58(TokenProgramStr)
	TokenProgram2022          = types.PubkeyFromBase58(TokenProgram2022Str)
	AssociatedTokenProgram    = types.PubkeyFromBase58(AssociatedTokenProgramStr)
	ComputeBudgetProgram      = types.PubkeyFromBase58(ComputeBudgetProgramStr)
	AddressLookupTableProgram = types.PubkeyFromBase58(AddressLookupTableProgramStr)

	WSOLMint = types.PubkeyFromBase58(WSOLMintStr)
	USDCMint = types.PubkeyFromBase58(USDCMintStr)
	USDTMint = types.PubkeyFromBase58(USDTMintStr)
)
