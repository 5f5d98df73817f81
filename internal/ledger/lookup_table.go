package ledger

import (
	"fmt"

	"wallet-core-sol/internal/types"

	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
)

// decodeLookupTable 解析 Address Lookup Table 账户数据，返回地址列表
func decodeLookupTable(data []byte) (_ []types.Pubkey, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode lookup table panic: %v", r)
		}
	}()

	state, err := addresslookuptable.DecodeAddressLookupTableState(data)
	if err != nil {
		return nil, fmt.Errorf("decode lookup table: %w", err)
	}
	out := make([]types.Pubkey, len(state.Addresses))
	for i, a := range state.Addresses {
		out[i] = types.Pubkey(a)
	}
	return out, nil
}
