package replay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egpivo/ethereum-account-state/internal/event"
	"github.com/egpivo/ethereum-account-state/internal/source"
)

const (
	aliceHex = "0x00000000000000000000000000000000000000a1"
	bobHex   = "0x00000000000000000000000000000000000000b2"
	zeroHex  = "0x0000000000000000000000000000000000000000"
)

func testEngine(src source.Source) *Engine {
	return New(Config{
		Source: src,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokens: NewFixedGenerator("run-1", "run-2", "run-3"),
	})
}

func rec(kind, unit string, block uint64, txIndex, logIndex uint, args map[string]string) event.RawRecord {
	idx := logIndex
	return event.RawRecord{
		Kind:     kind,
		Args:     args,
		Unit:     unit,
		Block:    block,
		TxIndex:  txIndex,
		LogIndex: &idx,
	}
}

func mintRec(unit string, block uint64, logIndex uint, to, value string) event.RawRecord {
	return rec(event.KindMint, unit, block, 0, logIndex, map[string]string{"to": to, "value": value})
}

func transferRec(unit string, block uint64, logIndex uint, from, to, value string) event.RawRecord {
	return rec(event.KindTransfer, unit, block, 0, logIndex, map[string]string{"from": from, "to": to, "value": value})
}

func burnRec(unit string, block uint64, logIndex uint, from, value string) event.RawRecord {
	return rec(event.KindBurn, unit, block, 0, logIndex, map[string]string{"from": from, "value": value})
}

// TestReconstruct_MintThenTransfer covers the basic two-unit flow:
// mint to Alice, transfer part of it to Bob.
func TestReconstruct_MintThenTransfer(t *testing.T) {
	records := []event.RawRecord{
		mintRec("0x01", 1, 0, aliceHex, "1000"),
		transferRec("0x02", 2, 0, aliceHex, bobHex, "300"),
	}

	result, err := testEngine(source.Static(records)).Reconstruct(context.Background())
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(700), result.State.Balance(common.HexToAddress(aliceHex)))
	assert.Equal(t, big.NewInt(300), result.State.Balance(common.HexToAddress(bobHex)))
	assert.Equal(t, big.NewInt(1000), result.State.TotalIssued())
	assert.True(t, result.State.VerifyInvariant())

	assert.Equal(t, "run-1", result.Report.RunToken)
	assert.Equal(t, 2, result.Report.Units)
	assert.Equal(t, 2, result.Report.Applied)
	assert.Zero(t, result.Report.SkippedRedundant)
}

// TestReconstruct_RedundantBurnAppliedOnce covers the canonical-signal
// rule: Burn at log index 1 and Transfer-to-zero at log index 2 in the
// same unit reduce Bob and issuance by 100, not 200.
func TestReconstruct_RedundantBurnAppliedOnce(t *testing.T) {
	records := []event.RawRecord{
		mintRec("0x01", 1, 0, bobHex, "500"),
		burnRec("0x02", 2, 1, bobHex, "100"),
		transferRec("0x02", 2, 2, bobHex, zeroHex, "100"),
	}

	result, err := testEngine(source.Static(records)).Reconstruct(context.Background())
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(400), result.State.Balance(common.HexToAddress(bobHex)))
	assert.Equal(t, big.NewInt(400), result.State.TotalIssued())
	assert.Equal(t, 1, result.Report.SkippedRedundant)
	assert.Equal(t, 2, result.Report.Applied)
}

// TestReconstruct_FallbackBurn: an explicit Burn with no canonical
// signal in its unit applies exactly once.
func TestReconstruct_FallbackBurn(t *testing.T) {
	records := []event.RawRecord{
		mintRec("0x01", 1, 0, bobHex, "500"),
		burnRec("0x02", 2, 1, bobHex, "100"),
	}

	result, err := testEngine(source.Static(records)).Reconstruct(context.Background())
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(400), result.State.Balance(common.HexToAddress(bobHex)))
	assert.Equal(t, big.NewInt(400), result.State.TotalIssued())
	assert.Zero(t, result.Report.SkippedRedundant)
}

// TestReconstruct_ReordersLateMint delivers a spending transfer before
// the mint that funds it; the engine must replay the mint first.
func TestReconstruct_ReordersLateMint(t *testing.T) {
	records := []event.RawRecord{
		transferRec("0x05", 5, 0, aliceHex, bobHex, "100"),
		mintRec("0x03", 3, 0, aliceHex, "100"),
	}

	result, err := testEngine(source.Static(records)).Reconstruct(context.Background())
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(0), result.State.Balance(common.HexToAddress(aliceHex)))
	assert.Equal(t, big.NewInt(100), result.State.Balance(common.HexToAddress(bobHex)))
	assert.Equal(t, big.NewInt(100), result.State.TotalIssued())
}

// TestReconstruct_OrderIndependence replays shuffled permutations of a
// non-trivial history and requires bit-identical canonical reports.
func TestReconstruct_OrderIndependence(t *testing.T) {
	records := []event.RawRecord{
		mintRec("0x01", 1, 0, aliceHex, "1000"),
		mintRec("0x02", 2, 0, bobHex, "50"),
		transferRec("0x03", 3, 1, aliceHex, bobHex, "250"),
		burnRec("0x04", 4, 1, bobHex, "100"),
		transferRec("0x04", 4, 2, bobHex, zeroHex, "100"),
		transferRec("0x05", 5, 0, bobHex, aliceHex, "75"),
	}

	canonical := func(recs []event.RawRecord) []byte {
		result, err := testEngine(nil).ReconstructRecords(recs)
		require.NoError(t, err)
		// Same fixed token per fresh engine keeps reports comparable.
		data, err := result.Report.MarshalCanonical()
		require.NoError(t, err)
		return data
	}

	want := canonical(records)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]event.RawRecord, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, string(want), string(canonical(shuffled)), "permutation %d diverged", i)
	}
}

// TestReconstruct_PreconditionDuringReplayIsFatal: historical events
// are pre-validated, so an overspend means the pipeline is broken and
// the whole call fails.
func TestReconstruct_PreconditionDuringReplayIsFatal(t *testing.T) {
	records := []event.RawRecord{
		mintRec("0x01", 1, 0, aliceHex, "10"),
		transferRec("0x02", 2, 0, aliceHex, bobHex, "100"),
	}

	result, err := testEngine(source.Static(records)).Reconstruct(context.Background())
	require.Error(t, err)
	assert.Nil(t, result, "no partial state on failure")
	assert.Equal(t, ErrCodePreconditionFailed, CodeOf(err))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "0x02", re.Unit)
}

func TestReconstruct_MalformedRecordsReportedNotFatal(t *testing.T) {
	records := []event.RawRecord{
		mintRec("0x01", 1, 0, aliceHex, "1000"),
		mintRec("0x02", 2, 0, "garbage", "1000"),
	}

	result, err := testEngine(source.Static(records)).Reconstruct(context.Background())
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(1000), result.State.TotalIssued())
	require.Len(t, result.Report.Dropped, 1)
	assert.Equal(t, "to", result.Report.Dropped[0].Field)
}

func TestReconstruct_SourceFailure(t *testing.T) {
	e := testEngine(failingSource{})

	result, err := e.Reconstruct(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, ErrCodeSourceFailed, CodeOf(err))
}

func TestReconstruct_NoSourceConfigured(t *testing.T) {
	e := testEngine(nil)

	_, err := e.Reconstruct(context.Background())
	require.Error(t, err)
	assert.Equal(t, ErrCodeSourceFailed, CodeOf(err))
}

func TestReconstruct_EmptyBatch(t *testing.T) {
	result, err := testEngine(source.Static(nil)).Reconstruct(context.Background())
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(0), result.State.TotalIssued())
	assert.True(t, result.State.VerifyInvariant())
	assert.Zero(t, result.Report.Units)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name      string
		live      *big.Int
		rebuilt   *big.Int
		match     bool
		wantDelta *big.Int
	}{
		{"exact match", big.NewInt(500), big.NewInt(500), true, big.NewInt(0)},
		{"live ahead", big.NewInt(700), big.NewInt(500), false, big.NewInt(200)},
		{"reconstruction ahead", big.NewInt(300), big.NewInt(500), false, big.NewInt(-200)},
		{"nil live treated as zero", nil, big.NewInt(5), false, big.NewInt(-5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := Compare(tt.live, tt.rebuilt)
			assert.Equal(t, tt.match, cmp.Match)
			assert.Equal(t, tt.wantDelta, cmp.Delta)
		})
	}
}

type failingSource struct{}

func (failingSource) Records(ctx context.Context) ([]event.RawRecord, error) {
	return nil, fmt.Errorf("rpc unavailable")
}
