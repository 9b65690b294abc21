package replay

import (
	"io"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/egpivo/ethereum-account-state/internal/event"
)

// TestReconstructionReport_Golden pins the canonical report bytes for a
// history exercising every pipeline path: a plain mint and transfer, a
// redundant burn pair, a malformed record, and a foreign event kind.
//
// Regenerate with: go test ./internal/replay -update
func TestReconstructionReport_Golden(t *testing.T) {
	logIndex := func(v uint) *uint { return &v }

	records := []event.RawRecord{
		mintRec("0x01", 1, 0, aliceHex, "1000"),
		transferRec("0x02", 2, 1, aliceHex, bobHex, "300"),
		burnRec("0x03", 3, 1, bobHex, "100"),
		transferRec("0x03", 3, 2, bobHex, zeroHex, "100"),
		{
			Kind: event.KindMint,
			Args: map[string]string{"to": "oops", "value": "10"},
			Unit: "0x04", Block: 4, LogIndex: logIndex(0),
		},
		{Kind: "Approval", Unit: "0x05", Block: 5, LogIndex: logIndex(0)},
	}

	engine := New(Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokens: NewFixedGenerator("golden-run"),
	})
	result, err := engine.ReconstructRecords(records)
	require.NoError(t, err)

	data, err := result.Report.MarshalCanonical()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "reconstruction_report", data)
}
