package svc

import (
	"testing"

	"wallet-core-sol/internal/config"
	"wallet-core-sol/internal/journal"
	"wallet-core-sol/internal/logic/executor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceContextWithoutInfrastructure(t *testing.T) {
	c, err := config.Parse([]byte("swap:\n  base_url: https://quote.example\n"))
	require.NoError(t, err)

	ctx, err := NewServiceContext(c)
	require.NoError(t, err)
	defer ctx.Close()

	assert.NotNil(t, ctx.Ledger)
	assert.NotNil(t, ctx.Executor)
	assert.NotNil(t, ctx.Swap)
	assert.NotNil(t, ctx.Reconciler)
	assert.IsType(t, &journal.MemoryJournal{}, ctx.Journal)
	assert.IsType(t, executor.NopEventSink{}, ctx.Events)

	// facade 指标注册在独立 registry 上
	families, err := ctx.Registry.Gather()
	require.NoError(t, err)
	assert.NotNil(t, families)
}
