package decomposer

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"
)

func key(b byte) types.Pubkey {
	var p types.Pubkey
	p[0] = b
	p[31] = b
	return p
}

var (
	payer = key(1)
	table = key(50)
	// lookup table 内容：a0, a1 以 writable 引用；a2, a3 以 readonly 引用
	tableEntries = []types.Pubkey{key(10), key(11), key(12), key(13)}
)

func v0Message() solana.Message {
	msg := solana.Message{
		Header:          solana.MessageHeader{NumRequiredSignatures: 1},
		AccountKeys:     solana.PublicKeySlice{solana.PublicKey(payer)},
		RecentBlockhash: solana.Hash{7, 7, 7},
		Instructions: []solana.CompiledInstruction{
			{ProgramIDIndex: 3, Accounts: []uint16{0, 1, 4}, Data: []byte{0xA, 0xB}},
			{ProgramIDIndex: 4, Accounts: []uint16{2, 3, 0}, Data: []byte{0xC}},
		},
		AddressTableLookups: solana.MessageAddressTableLookupSlice{
			{AccountKey: solana.PublicKey(table), WritableIndexes: []uint8{0, 1}, ReadonlyIndexes: []uint8{2, 3}},
		},
	}
	msg.SetVersion(solana.MessageVersionV0)
	return msg
}

func serialize(t *testing.T, msg solana.Message) []byte {
	t.Helper()
	tx := solana.Transaction{Signatures: []solana.Signature{{}}, Message: msg}
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func tablesFixture() StaticTables {
	return StaticTables{table: tableEntries}
}

func TestDecomposeResolvesLookupRanges(t *testing.T) {
	raw := serialize(t, v0Message())
	instrs, err := Decompose(context.Background(), raw, tablesFixture())
	require.NoError(t, err)
	require.Len(t, instrs, 2)

	first := instrs[0]
	assert.Equal(t, tableEntries[2], first.ProgramID)
	assert.Equal(t, []core.AccountRef{
		{Address: payer, IsSigner: true, IsWritable: true},
		{Address: tableEntries[0], IsWritable: true},
		{Address: tableEntries[3]},
	}, first.Accounts)
	assert.Equal(t, []byte{0xA, 0xB}, first.Data)

	second := instrs[1]
	assert.Equal(t, tableEntries[3], second.ProgramID)
	assert.Equal(t, []core.AccountRef{
		{Address: tableEntries[1], IsWritable: true},
		{Address: tableEntries[2]},
		{Address: payer, IsSigner: true, IsWritable: true},
	}, second.Accounts)
}

func TestDecomposeRoundTrip(t *testing.T) {
	msg := v0Message()
	raw := serialize(t, msg)
	ctx := context.Background()

	env, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, VersionV0, env.Version)
	assert.Equal(t, []types.Pubkey{table}, env.LookupTables())

	instrs, err := DecomposeEnvelope(ctx, env, tablesFixture())
	require.NoError(t, err)

	cc, err := NewCompileContext(ctx, env, tablesFixture())
	require.NoError(t, err)
	compiled, err := Compile(instrs, cc)
	require.NoError(t, err)
	assert.Equal(t, env.Instructions, compiled)

	encoded, err := EncodeCompiled(cc, compiled)
	require.NoError(t, err)
	original, err := msg.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, original, encoded)
	assert.Equal(t, raw[len(raw)-len(encoded):], encoded)
}

func TestDecomposeLegacy(t *testing.T) {
	program := key(90)
	msg := solana.Message{
		Header: solana.MessageHeader{NumRequiredSignatures: 1, NumReadonlyUnsignedAccounts: 1},
		AccountKeys: solana.PublicKeySlice{
			solana.PublicKey(payer), solana.PublicKey(key(2)), solana.PublicKey(program),
		},
		Instructions: []solana.CompiledInstruction{
			{ProgramIDIndex: 2, Accounts: []uint16{0, 1}, Data: []byte{1, 2, 3}},
		},
	}
	msg.SetVersion(solana.MessageVersionLegacy)
	raw := serialize(t, msg)

	env, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, VersionLegacy, env.Version)

	instrs, err := Decompose(context.Background(), raw, nil)
	require.NoError(t, err)
	require.Len(t, instrs, 1)
	assert.Equal(t, program, instrs[0].ProgramID)
	assert.Equal(t, []core.AccountRef{
		{Address: payer, IsSigner: true, IsWritable: true},
		{Address: key(2), IsWritable: true},
	}, instrs[0].Accounts)

	cc, err := NewCompileContext(context.Background(), env, nil)
	require.NoError(t, err)
	compiled, err := Compile(instrs, cc)
	require.NoError(t, err)
	encoded, err := EncodeCompiled(cc, compiled)
	require.NoError(t, err)
	original, err := msg.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, original, encoded)
}

func TestDecomposeRejectsUnknownVersion(t *testing.T) {
	raw := make([]byte, 0, 80)
	raw = append(raw, 1)
	raw = append(raw, make([]byte, 64)...)
	raw = append(raw, 0x81, 1, 0, 0)

	_, err := Decompose(context.Background(), raw, nil)
	assert.ErrorIs(t, err, core.ErrMalformedTransaction)
}

func TestDecomposeRejectsGarbage(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, {5}, {1, 2, 3}} {
		_, err := Decompose(context.Background(), raw, nil)
		assert.ErrorIs(t, err, core.ErrMalformedTransaction, "%x", raw)
	}

	_, err := DecomposeBase64(context.Background(), "%%%not-base64", nil)
	assert.ErrorIs(t, err, core.ErrMalformedTransaction)
}

func TestDecomposeRejectsTrailingBytes(t *testing.T) {
	raw := append(serialize(t, v0Message()), 0xde, 0xad, 0xbe, 0xef)

	_, err := Decompose(context.Background(), raw, tablesFixture())
	assert.ErrorIs(t, err, core.ErrMalformedTransaction)

	_, err = DecodeEnvelope(raw)
	assert.ErrorIs(t, err, core.ErrMalformedTransaction)
}

func TestDecomposeIndexOutOfRange(t *testing.T) {
	msg := v0Message()
	msg.AddressTableLookups[0].ReadonlyIndexes = []uint8{2, 9}
	_, err := Decompose(context.Background(), serialize(t, msg), tablesFixture())
	assert.ErrorIs(t, err, core.ErrMalformedTransaction)

	msg = v0Message()
	msg.Instructions[1].Accounts = []uint16{0, 5}
	_, err = Decompose(context.Background(), serialize(t, msg), tablesFixture())
	assert.ErrorIs(t, err, core.ErrMalformedTransaction)
}

func TestDecomposeMissingTable(t *testing.T) {
	raw := serialize(t, v0Message())
	_, err := Decompose(context.Background(), raw, StaticTables{})
	assert.ErrorIs(t, err, core.ErrMalformedTransaction)

	_, err = Decompose(context.Background(), raw, nil)
	assert.ErrorIs(t, err, core.ErrMalformedTransaction)
}

type failingSource struct{ err error }

func (f failingSource) GetAddressLookupTable(context.Context, types.Pubkey) ([]types.Pubkey, error) {
	return nil, f.err
}

func TestDecomposePropagatesSourceError(t *testing.T) {
	netErr := errors.New("connection reset")
	_, err := Decompose(context.Background(), serialize(t, v0Message()), failingSource{err: netErr})
	assert.ErrorIs(t, err, netErr)
	assert.NotErrorIs(t, err, core.ErrMalformedTransaction)
}

func TestDecomposeConflictingFlags(t *testing.T) {
	// payer 以 signer 身份出现在静态表，又以 writable 非 signer 身份出现在 lookup 表中
	msg := v0Message()
	msg.Instructions[0].Accounts = []uint16{0, 1}
	tables := StaticTables{table: {payer, key(11), key(12), key(13)}}

	_, err := Decompose(context.Background(), serialize(t, msg), tables)
	assert.ErrorIs(t, err, core.ErrMalformedTransaction)
}

func TestDecomposeBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(serialize(t, v0Message()))
	instrs, err := DecomposeBase64(context.Background(), encoded, tablesFixture())
	require.NoError(t, err)
	assert.Len(t, instrs, 2)
}

func TestStripComputeBudget(t *testing.T) {
	instrs := []core.Instruction{
		{ProgramID: consts.ComputeBudgetProgram, Data: []byte{2}},
		{ProgramID: consts.SystemProgram, Data: []byte{1}},
		{ProgramID: consts.ComputeBudgetProgram, Data: []byte{3}},
		{ProgramID: consts.MemoProgram, Data: []byte("hi")},
	}
	out := StripComputeBudget(instrs)
	require.Len(t, out, 2)
	assert.Equal(t, consts.SystemProgram, out[0].ProgramID)
	assert.Equal(t, consts.MemoProgram, out[1].ProgramID)
}
