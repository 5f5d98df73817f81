package derivation

import (
	"fmt"
	"strconv"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"

	"github.com/blocto/solana-go-sdk/common"
)

// SeedSpec 派生地址的输入：base 公钥 + seed 字符串 + owner 程序
type SeedSpec struct {
	Base  types.Pubkey
	Seed  string
	Owner types.Pubkey
}

// Derive 计算 sha256(base || seed || owner)。
// 纯函数，不访问网络；seed 的 UTF-8 字节长度不得超过 32。
func Derive(spec SeedSpec) (types.Pubkey, error) {
	if len(spec.Seed) > consts.MaxSeedLength {
		return types.Pubkey{}, fmt.Errorf("%w: seed is %d bytes, max %d", core.ErrInvalidSeed, len(spec.Seed), consts.MaxSeedLength)
	}
	derived := common.CreateWithSeed(common.PublicKey(spec.Base), spec.Seed, common.PublicKey(spec.Owner))
	return types.Pubkey(derived), nil
}

// MustDerive 仅用于常量 / 测试场景
func MustDerive(spec SeedSpec) types.Pubkey {
	pk, err := Derive(spec)
	if err != nil {
		panic(err)
	}
	return pk
}

// NextStakeSeed 生成 "{prefix}:{n}" 形式的 stake seed，prefix 为空时使用 "stake"
func NextStakeSeed(prefix string, n uint64) (string, error) {
	if prefix == "" {
		prefix = "stake"
	}
	seed := prefix + ":" + strconv.FormatUint(n, 10)
	if len(seed) > consts.MaxSeedLength {
		return "", fmt.Errorf("%w: seed %q exceeds %d bytes", core.ErrInvalidSeed, seed, consts.MaxSeedLength)
	}
	return seed, nil
}

// StakeAddress 派生由 Stake 程序持有的 stake 账户地址
func StakeAddress(owner types.Pubkey, seed string) (types.Pubkey, error) {
	return Derive(SeedSpec{Base: owner, Seed: seed, Owner: consts.StakeProgram})
}
