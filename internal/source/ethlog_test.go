package source

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egpivo/ethereum-account-state/internal/event"
)

var (
	tokenAddr = common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	fromAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	toAddr    = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func amountData(v int64) []byte {
	return common.BigToHash(big.NewInt(v)).Bytes()
}

func TestRecordFromLog_Transfer(t *testing.T) {
	lg := types.Log{
		Address:     tokenAddr,
		Topics:      []common.Hash{topicTransfer, addressTopic(fromAddr), addressTopic(toAddr)},
		Data:        amountData(1234),
		BlockNumber: 17,
		TxHash:      common.HexToHash("0xfeed"),
		TxIndex:     3,
		Index:       9,
	}

	rec, ok := RecordFromLog(lg)
	require.True(t, ok)

	assert.Equal(t, event.KindTransfer, rec.Kind)
	assert.Equal(t, fromAddr.Hex(), rec.Args["from"])
	assert.Equal(t, toAddr.Hex(), rec.Args["to"])
	assert.Equal(t, "1234", rec.Args["value"])
	assert.Equal(t, lg.TxHash.Hex(), rec.Unit)
	assert.Equal(t, uint64(17), rec.Block)
	assert.Equal(t, uint(3), rec.TxIndex)
	require.NotNil(t, rec.LogIndex)
	assert.Equal(t, uint(9), *rec.LogIndex)
}

func TestRecordFromLog_MintAndBurn(t *testing.T) {
	mint := types.Log{
		Topics: []common.Hash{topicMint, addressTopic(toAddr)},
		Data:   amountData(500),
		TxHash: common.HexToHash("0x01"),
	}
	rec, ok := RecordFromLog(mint)
	require.True(t, ok)
	assert.Equal(t, event.KindMint, rec.Kind)
	assert.Equal(t, toAddr.Hex(), rec.Args["to"])
	assert.Equal(t, "500", rec.Args["value"])

	burn := types.Log{
		Topics: []common.Hash{topicBurn, addressTopic(fromAddr)},
		Data:   amountData(200),
		TxHash: common.HexToHash("0x02"),
	}
	rec, ok = RecordFromLog(burn)
	require.True(t, ok)
	assert.Equal(t, event.KindBurn, rec.Kind)
	assert.Equal(t, fromAddr.Hex(), rec.Args["from"])
}

func TestRecordFromLog_SkipsForeignSignatures(t *testing.T) {
	approval := types.Log{
		Topics: []common.Hash{
			common.HexToHash("0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"),
			addressTopic(fromAddr),
			addressTopic(toAddr),
		},
		Data: amountData(1),
	}
	_, ok := RecordFromLog(approval)
	assert.False(t, ok)

	_, ok = RecordFromLog(types.Log{})
	assert.False(t, ok, "log without topics is skipped")
}

func TestRecordFromLog_SkipsMalformedTopicArity(t *testing.T) {
	// Transfer with a missing indexed argument.
	lg := types.Log{
		Topics: []common.Hash{topicTransfer, addressTopic(fromAddr)},
		Data:   amountData(1),
	}
	_, ok := RecordFromLog(lg)
	assert.False(t, ok)
}

// TestRecordFromLog_AmountBeyond64Bits checks big-value data survives
// the string round trip.
func TestRecordFromLog_AmountBeyond64Bits(t *testing.T) {
	huge, ok := new(big.Int).SetString("1000000000000000000000000000000", 10)
	require.True(t, ok)

	lg := types.Log{
		Topics: []common.Hash{topicMint, addressTopic(toAddr)},
		Data:   common.BigToHash(huge).Bytes(),
		TxHash: common.HexToHash("0x03"),
	}
	rec, converted := RecordFromLog(lg)
	require.True(t, converted)
	assert.Equal(t, huge.String(), rec.Args["value"])
}

// fakeCaller replays canned logs page by page and records the windows
// it was asked for.
type fakeCaller struct {
	logs    map[uint64][]types.Log // keyed by FromBlock
	windows [][2]uint64
}

func (f *fakeCaller) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	from := q.FromBlock.Uint64()
	f.windows = append(f.windows, [2]uint64{from, q.ToBlock.Uint64()})
	return f.logs[from], nil
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return common.BigToHash(big.NewInt(777)).Bytes(), nil
}

func TestLogSource_PagesWindowsAndCollectsAll(t *testing.T) {
	mkLog := func(block uint64) types.Log {
		return types.Log{
			Topics:      []common.Hash{topicMint, addressTopic(toAddr)},
			Data:        amountData(1),
			BlockNumber: block,
			TxHash:      common.BigToHash(big.NewInt(int64(block))),
		}
	}

	caller := &fakeCaller{logs: map[uint64][]types.Log{
		100: {mkLog(150)},
		200: {mkLog(210), mkLog(250)},
		300: {mkLog(310)},
	}}

	src, err := newLogSource(caller, LogSourceConfig{
		Token:     tokenAddr,
		FromBlock: 100,
		ToBlock:   350,
		Window:    100,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	records, err := src.Records(context.Background())
	require.NoError(t, err)

	assert.Len(t, records, 4)
	assert.Equal(t, [][2]uint64{{100, 199}, {200, 299}, {300, 350}}, caller.windows)
}

func TestLogSource_LiveBalance(t *testing.T) {
	src, err := newLogSource(&fakeCaller{}, LogSourceConfig{
		Token:     tokenAddr,
		FromBlock: 1,
		ToBlock:   2,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	balance, err := src.LiveBalance(context.Background(), fromAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(777), balance)
}
