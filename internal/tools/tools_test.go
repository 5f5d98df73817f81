package tools

import (
	"testing"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestExplorerURL(t *testing.T) {
	var sig types.Signature
	sig[0] = 1

	assert.Equal(t,
		"https://explorer.solana.com/tx/"+sig.String()+"?cluster=devnet",
		ExplorerURL("", sig, consts.NetworkDevnet))
	assert.Equal(t,
		"https://explorer.example/tx/"+sig.String()+"?cluster=mainnet-beta",
		ExplorerURL("https://explorer.example/", sig, consts.NetworkMainnet))
}

func TestTokenProgramHelpers(t *testing.T) {
	assert.True(t, IsSPLTokenProgram(consts.TokenProgram))
	assert.True(t, IsSPLTokenProgram(consts.TokenProgram2022))
	assert.False(t, IsSPLTokenProgram(consts.SystemProgram))
	assert.True(t, IsComputeBudgetProgram(consts.ComputeBudgetProgram))
	assert.Equal(t, uint8(6), KnownTokenDecimals[consts.USDCMint])
}
