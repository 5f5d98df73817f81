package ledger_test

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/ledger"
	"wallet-core-sol/internal/ledger/ledgertest"
	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"
)

func addr(b byte) types.Pubkey {
	var p types.Pubkey
	p[0] = b
	p[1] = 0xEE
	return p
}

func newFacade(t *testing.T, rpc ledger.RPC, clock clockwork.Clock, interval time.Duration) *ledger.Facade {
	t.Helper()
	return ledger.NewFacade(rpc, ledger.Config{
		TTL:              30 * time.Second,
		ThrottleInterval: interval,
		Clock:            clock,
		Registerer:       prometheus.NewRegistry(),
	})
}

func TestFacadeCacheTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rpc := &ledgertest.MockRPC{Clock: clock}
	f := newFacade(t, rpc, clock, time.Millisecond)
	ctx := context.Background()

	v, err := f.GetBalance(ctx, addr(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), v)
	assert.Equal(t, 1, rpc.CallCount("GetBalance"))

	clock.Advance(30*time.Second - time.Millisecond)
	_, err = f.GetBalance(ctx, addr(1))
	require.NoError(t, err)
	assert.Equal(t, 1, rpc.CallCount("GetBalance"), "cache hit must not touch the network")

	clock.Advance(2 * time.Millisecond)
	_, err = f.GetBalance(ctx, addr(1))
	require.NoError(t, err)
	assert.Equal(t, 2, rpc.CallCount("GetBalance"))

	m := f.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("balance")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMisses.WithLabelValues("balance")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RPCCalls.WithLabelValues("getBalance", "ok")))
}

func TestFacadeThrottleSpacingFakeClock(t *testing.T) {
	const interval = 200 * time.Millisecond
	clock := clockwork.NewFakeClock()
	rpc := &ledgertest.MockRPC{Clock: clock}
	f := newFacade(t, rpc, clock, interval)

	start := clock.Now()
	done := make(chan error, 1)
	go func() {
		for i := byte(0); i < 5; i++ {
			if _, err := f.GetBalance(context.Background(), addr(i)); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 4; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(interval)
	}
	require.NoError(t, <-done)

	calls := rpc.Calls()
	require.Len(t, calls, 5)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].At.Sub(calls[i-1].At), interval)
	}
	assert.GreaterOrEqual(t, calls[4].At.Sub(start), 4*interval)
}

func TestFacadeThrottleSpacingRealClock(t *testing.T) {
	const interval = 20 * time.Millisecond
	rpc := &ledgertest.MockRPC{}
	f := newFacade(t, rpc, clockwork.NewRealClock(), interval)

	start := time.Now()
	for i := byte(0); i < 5; i++ {
		_, err := f.GetBalance(context.Background(), addr(i))
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 4*interval)

	calls := rpc.Calls()
	require.Len(t, calls, 5)
	for i := 1; i < len(calls); i++ {
		// 允许 1ms 的调度误差
		assert.GreaterOrEqual(t, calls[i].At.Sub(calls[i-1].At), interval-time.Millisecond)
	}
}

func TestFacadeThrottleHonoursContext(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rpc := &ledgertest.MockRPC{Clock: clock}
	f := newFacade(t, rpc, clock, time.Hour)

	_, err := f.GetBalance(context.Background(), addr(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.GetBalance(ctx, addr(2))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, rpc.CallCount(""))
}

func TestFacadeTokenBalanceMissing(t *testing.T) {
	rpc := &ledgertest.MockRPC{}
	f := newFacade(t, rpc, clockwork.NewRealClock(), time.Millisecond)

	amount, err := f.GetTokenBalance(context.Background(), addr(3))
	require.NoError(t, err)
	assert.Nil(t, amount)

	rpc.GetTokenAccountBalanceFunc = func(context.Context, types.Pubkey) (*ledger.TokenAmount, error) {
		return &ledger.TokenAmount{Amount: 2_500_000, Decimals: 6}, nil
	}
	amount, err = f.GetTokenBalance(context.Background(), addr(4))
	require.NoError(t, err)
	require.NotNil(t, amount)
	assert.Equal(t, "2.5", amount.UIAmount().String())
}

func TestFacadeInvalidate(t *testing.T) {
	rpc := &ledgertest.MockRPC{}
	f := newFacade(t, rpc, clockwork.NewRealClock(), time.Millisecond)
	ctx := context.Background()

	_, _ = f.GetBalance(ctx, addr(1))
	_, _ = f.GetTokenBalance(ctx, addr(1))
	_, _ = f.GetBalance(ctx, addr(2))
	assert.Equal(t, 3, rpc.CallCount(""))

	f.Invalidate(addr(1))
	_, _ = f.GetBalance(ctx, addr(1))
	_, _ = f.GetTokenBalance(ctx, addr(1))
	_, _ = f.GetBalance(ctx, addr(2))
	assert.Equal(t, 5, rpc.CallCount(""))

	f.InvalidateAll()
	_, _ = f.GetBalance(ctx, addr(2))
	assert.Equal(t, 6, rpc.CallCount(""))
}

func TestFacadeSignatureStatusNeverCached(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rpc := &ledgertest.MockRPC{Clock: clock}
	rpc.GetSignatureStatusFunc = func(context.Context, types.Signature) (*ledger.SignatureStatus, error) {
		return &ledger.SignatureStatus{Status: ledger.StatusConfirmed}, nil
	}
	f := newFacade(t, rpc, clock, time.Millisecond)

	for i := 0; i < 3; i++ {
		st, err := f.GetSignatureStatus(context.Background(), types.Signature{1})
		require.NoError(t, err)
		assert.True(t, st.Confirmed())
		clock.Advance(time.Millisecond)
	}
	assert.Equal(t, 3, rpc.CallCount("GetSignatureStatus"))
}

func TestFacadeNetworkErrorNotCached(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rpc := &ledgertest.MockRPC{Clock: clock}
	boom := errors.New("429 too many requests")
	rpc.GetBalanceFunc = func(context.Context, types.Pubkey) (uint64, error) { return 0, boom }
	f := newFacade(t, rpc, clock, time.Millisecond)

	_, err := f.GetBalance(context.Background(), addr(1))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, core.CategoryNetwork, core.Classify(err))

	rpc.GetBalanceFunc = nil
	clock.Advance(time.Millisecond)
	v, err := f.GetBalance(context.Background(), addr(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), v)
}

func TestFacadeCoalesceInFlight(t *testing.T) {
	release := make(chan struct{})
	rpc := &ledgertest.MockRPC{}
	rpc.GetBalanceFunc = func(context.Context, types.Pubkey) (uint64, error) {
		<-release
		return 7, nil
	}
	f := ledger.NewFacade(rpc, ledger.Config{
		ThrottleInterval: time.Millisecond,
		CoalesceInFlight: true,
		Registerer:       prometheus.NewRegistry(),
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := f.GetBalance(context.Background(), addr(9))
			assert.NoError(t, err)
			assert.Equal(t, uint64(7), v)
		}()
	}
	require.Eventually(t, func() bool { return rpc.CallCount("GetBalance") == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, 1, rpc.CallCount("GetBalance"))
}

func TestFacadeCoalescedLoadSurvivesCallerCancel(t *testing.T) {
	release := make(chan struct{})
	rpc := &ledgertest.MockRPC{}
	rpc.GetBalanceFunc = func(ctx context.Context, _ types.Pubkey) (uint64, error) {
		select {
		case <-release:
			return 11, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	f := ledger.NewFacade(rpc, ledger.Config{
		ThrottleInterval: time.Millisecond,
		CoalesceInFlight: true,
	})

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := f.GetBalance(leaderCtx, addr(8))
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return rpc.CallCount("GetBalance") == 1 }, time.Second, time.Millisecond)

	followerDone := make(chan uint64, 1)
	go func() {
		v, err := f.GetBalance(context.Background(), addr(8))
		assert.NoError(t, err)
		followerDone <- v
	}()

	// 发起者取消只影响自己
	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	select {
	case v := <-followerDone:
		assert.Equal(t, uint64(11), v)
	case <-time.After(2 * time.Second):
		t.Fatal("coalesced caller did not return")
	}
	assert.Equal(t, 1, rpc.CallCount("GetBalance"))

	// 结果已写入缓存
	v, err := f.GetBalance(context.Background(), addr(8))
	require.NoError(t, err)
	assert.Equal(t, uint64(11), v)
	assert.Equal(t, 1, rpc.CallCount("GetBalance"))
}

func TestNewFacadeWithZeroConfigTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		first := ledger.NewFacade(&ledgertest.MockRPC{}, ledger.Config{})
		second := ledger.NewFacade(&ledgertest.MockRPC{}, ledger.Config{})
		assert.NotSame(t, first.Metrics(), second.Metrics())
	})
}

func TestFacadeTokenAccountsRejectsNonTokenProgram(t *testing.T) {
	rpc := &ledgertest.MockRPC{}
	f := ledger.NewFacade(rpc, ledger.Config{ThrottleInterval: time.Millisecond})

	_, err := f.GetTokenAccountsByOwner(context.Background(), addr(1), consts.SystemProgram)
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	assert.Zero(t, rpc.CallCount(""))

	rpc.GetTokenAccountsByOwnerFunc = func(_ context.Context, owner, program types.Pubkey) ([]ledger.TokenAccount, error) {
		return []ledger.TokenAccount{{Address: addr(3), Owner: owner, Program: program}}, nil
	}
	accounts, err := f.GetTokenAccountsByOwner(context.Background(), addr(1), consts.TokenProgram2022)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, consts.TokenProgram2022, accounts[0].Program)
	assert.Equal(t, 1, rpc.CallCount("GetTokenAccountsByOwner"))

	// 自定义程序列表的缓存同样随 owner 失效
	f.Invalidate(addr(1))
	_, err = f.GetTokenAccountsByOwner(context.Background(), addr(1), consts.TokenProgram2022)
	require.NoError(t, err)
	assert.Equal(t, 2, rpc.CallCount("GetTokenAccountsByOwner"))
}

func TestFacadeTokenAccountsByOwner(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rpc := &ledgertest.MockRPC{Clock: clock}
	rpc.GetTokenAccountsByOwnerFunc = func(_ context.Context, owner, program types.Pubkey) ([]ledger.TokenAccount, error) {
		return []ledger.TokenAccount{{Address: addr(byte(program[0])), Owner: owner, Program: program}}, nil
	}
	f := newFacade(t, rpc, clock, time.Millisecond)

	go func() {
		_ = clock.BlockUntilContext(context.Background(), 1)
		clock.Advance(time.Millisecond)
	}()
	accounts, err := f.GetTokenAccountsByOwner(context.Background(), addr(1))
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, consts.TokenProgram, accounts[0].Program)
	assert.Equal(t, consts.TokenProgram2022, accounts[1].Program)
}

func lookupTableData(addresses ...types.Pubkey) []byte {
	data := make([]byte, 56, 56+32*len(addresses))
	binary.LittleEndian.PutUint32(data[0:4], 1)
	binary.LittleEndian.PutUint64(data[4:12], math.MaxUint64)
	data[21] = 1 // authority: Some
	data[22] = 0xAA
	for _, a := range addresses {
		data = append(data, a[:]...)
	}
	return data
}

func TestFacadeAddressLookupTable(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rpc := &ledgertest.MockRPC{Clock: clock}
	table := addr(50)
	entries := []types.Pubkey{addr(10), addr(11), addr(12)}
	rpc.GetAccountInfoFunc = func(_ context.Context, a types.Pubkey) (*ledger.AccountInfo, error) {
		switch a {
		case table:
			return &ledger.AccountInfo{Owner: consts.AddressLookupTableProgram, Data: lookupTableData(entries...)}, nil
		case addr(51):
			return &ledger.AccountInfo{Owner: consts.SystemProgram}, nil
		}
		return nil, nil
	}
	f := newFacade(t, rpc, clock, time.Millisecond)
	ctx := context.Background()

	got, err := f.GetAddressLookupTable(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	clock.Advance(time.Millisecond)
	missing, err := f.GetAddressLookupTable(ctx, addr(60))
	require.NoError(t, err)
	assert.Nil(t, missing)

	clock.Advance(time.Millisecond)
	_, err = f.GetAddressLookupTable(ctx, addr(51))
	assert.ErrorIs(t, err, core.ErrMalformedTransaction)
}

func stakeAccountData(voter types.Pubkey, activation, deactivation uint64) []byte {
	data := make([]byte, consts.StakeAccountSpace)
	binary.LittleEndian.PutUint32(data[0:4], 2)
	off := 4 + 120
	copy(data[off:off+32], voter[:])
	binary.LittleEndian.PutUint64(data[off+32:], 5_000_000_000)
	binary.LittleEndian.PutUint64(data[off+40:], activation)
	binary.LittleEndian.PutUint64(data[off+48:], deactivation)
	binary.LittleEndian.PutUint64(data[off+56:], math.Float64bits(0.25))
	return data
}

func TestFacadeGetStakeAccount(t *testing.T) {
	voter := addr(77)
	cases := []struct {
		name         string
		activation   uint64
		deactivation uint64
		want         core.StakeState
	}{
		{"activating", 500, math.MaxUint64, core.StakeStateActivating},
		{"active", 400, math.MaxUint64, core.StakeStateActive},
		{"deactivating", 400, 500, core.StakeStateDeactivating},
		{"inactive", 400, 450, core.StakeStateInactive},
		{"cancelled", 480, 480, core.StakeStateInactive},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			clock := clockwork.NewFakeClock()
			rpc := &ledgertest.MockRPC{Clock: clock}
			rpc.GetAccountInfoFunc = func(context.Context, types.Pubkey) (*ledger.AccountInfo, error) {
				return &ledger.AccountInfo{
					Lamports: 5_002_282_880,
					Owner:    consts.StakeProgram,
					Data:     stakeAccountData(voter, c.activation, c.deactivation),
				}, nil
			}
			f := newFacade(t, rpc, clock, 0)
			go func() {
				_ = clock.BlockUntilContext(context.Background(), 1)
				clock.Advance(consts.DefaultThrottleInterval)
			}()

			summary, err := f.GetStakeAccount(context.Background(), addr(5))
			require.NoError(t, err)
			require.NotNil(t, summary)
			assert.Equal(t, addr(5), summary.Address)
			assert.Equal(t, uint64(5_002_282_880), summary.Lamports)
			assert.Equal(t, c.want, summary.State)
			require.NotNil(t, summary.DelegatedValidator)
			assert.Equal(t, voter, *summary.DelegatedValidator)
		})
	}
}

func TestFacadeGetStakeAccountInitializedAndForeign(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rpc := &ledgertest.MockRPC{Clock: clock}
	initialized := make([]byte, consts.StakeAccountSpace)
	binary.LittleEndian.PutUint32(initialized[0:4], 1)
	rpc.GetAccountInfoFunc = func(_ context.Context, a types.Pubkey) (*ledger.AccountInfo, error) {
		switch a {
		case addr(1):
			return &ledger.AccountInfo{Lamports: 10, Owner: consts.StakeProgram, Data: initialized}, nil
		case addr(2):
			return &ledger.AccountInfo{Lamports: 10, Owner: consts.SystemProgram}, nil
		}
		return nil, nil
	}
	f := newFacade(t, rpc, clock, time.Millisecond)
	ctx := context.Background()

	go func() {
		_ = clock.BlockUntilContext(context.Background(), 1)
		clock.Advance(time.Millisecond)
	}()
	summary, err := f.GetStakeAccount(ctx, addr(1))
	require.NoError(t, err)
	assert.Equal(t, core.StakeStateInactive, summary.State)
	assert.Nil(t, summary.DelegatedValidator)

	clock.Advance(time.Millisecond)
	_, err = f.GetStakeAccount(ctx, addr(2))
	assert.ErrorIs(t, err, ledger.ErrNotStakeAccount)

	clock.Advance(time.Millisecond)
	missing, err := f.GetStakeAccount(ctx, addr(3))
	require.NoError(t, err)
	assert.Nil(t, missing)
}
