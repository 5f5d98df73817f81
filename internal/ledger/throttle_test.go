package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleWait(t *testing.T) {
	clock := clockwork.NewFakeClock()
	th := NewThrottle(200*time.Millisecond, clock)

	waited, err := th.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, waited)

	result := make(chan time.Duration, 1)
	go func() {
		d, _ := th.Wait(context.Background())
		result <- d
	}()
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(200 * time.Millisecond)
	assert.Equal(t, 200*time.Millisecond, <-result)

	// 间隔已过，无需等待
	clock.Advance(time.Second)
	waited, err = th.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, waited)
}

func TestClassifyStake(t *testing.T) {
	assert.Equal(t, "inactive", classifyStake(nil, 10).String())
	d := &stakeDelegation{ActivationEpoch: 10, DeactivationEpoch: ^uint64(0)}
	assert.Equal(t, "activating", classifyStake(d, 10).String())
	assert.Equal(t, "active", classifyStake(d, 11).String())

	genesis := &stakeDelegation{ActivationEpoch: ^uint64(0), DeactivationEpoch: ^uint64(0)}
	assert.Equal(t, "active", classifyStake(genesis, 11).String())
}
