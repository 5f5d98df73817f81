package derivation

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"
)

var testBase = types.PubkeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")

func TestDeriveMatchesSha256(t *testing.T) {
	spec := SeedSpec{Base: testBase, Seed: "stake:0", Owner: consts.StakeProgram}
	got, err := Derive(spec)
	require.NoError(t, err)

	buf := append([]byte{}, testBase[:]...)
	buf = append(buf, "stake:0"...)
	buf = append(buf, consts.StakeProgram[:]...)
	assert.Equal(t, types.Pubkey(sha256.Sum256(buf)), got)
}

func TestDeriveIsDeterministic(t *testing.T) {
	spec := SeedSpec{Base: testBase, Seed: "savings", Owner: consts.StakeProgram}
	first := MustDerive(spec)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, MustDerive(spec))
	}
}

func TestDeriveIsSensitiveToEveryInput(t *testing.T) {
	seen := make(map[types.Pubkey]string)
	for _, seed := range []string{"stake:0", "stake:1", "stake:2", "a"} {
		pk := MustDerive(SeedSpec{Base: testBase, Seed: seed, Owner: consts.StakeProgram})
		_, dup := seen[pk]
		assert.False(t, dup, "seed %q collides", seed)
		seen[pk] = seed
	}

	base := SeedSpec{Base: testBase, Seed: "stake:0", Owner: consts.StakeProgram}
	otherOwner := base
	otherOwner.Owner = consts.SystemProgram
	otherBase := base
	otherBase.Base = consts.MemoProgram
	assert.NotEqual(t, MustDerive(base), MustDerive(otherOwner))
	assert.NotEqual(t, MustDerive(base), MustDerive(otherBase))
}

func TestDeriveSeedLength(t *testing.T) {
	_, err := Derive(SeedSpec{Base: testBase, Seed: strings.Repeat("x", 32), Owner: consts.StakeProgram})
	assert.NoError(t, err)

	_, err = Derive(SeedSpec{Base: testBase, Seed: strings.Repeat("x", 33), Owner: consts.StakeProgram})
	assert.ErrorIs(t, err, core.ErrInvalidSeed)

	// 11 个 3 字节字符 = 33 字节
	_, err = Derive(SeedSpec{Base: testBase, Seed: strings.Repeat("质", 11), Owner: consts.StakeProgram})
	assert.ErrorIs(t, err, core.ErrInvalidSeed)
}

func TestNextStakeSeed(t *testing.T) {
	seed, err := NextStakeSeed("", 3)
	require.NoError(t, err)
	assert.Equal(t, "stake:3", seed)

	seed, err = NextStakeSeed("vault", 12)
	require.NoError(t, err)
	assert.Equal(t, "vault:12", seed)

	_, err = NextStakeSeed(strings.Repeat("p", 30), 100)
	assert.ErrorIs(t, err, core.ErrInvalidSeed)

	addr, err := StakeAddress(testBase, "stake:3")
	require.NoError(t, err)
	assert.Equal(t, MustDerive(SeedSpec{Base: testBase, Seed: "stake:3", Owner: consts.StakeProgram}), addr)
}
