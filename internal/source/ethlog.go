package source

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/egpivo/ethereum-account-state/internal/event"
)

// Event signature topics matched by the fetcher. Transfer is the
// ERC-20 standard event; Mint and Burn are the token contract's
// explicit issuance events.
var (
	topicTransfer = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	topicMint     = crypto.Keccak256Hash([]byte("Mint(address,uint256)"))
	topicBurn     = crypto.Keccak256Hash([]byte("Burn(address,uint256)"))
)

// erc20ABI covers the single read the diagnostic compare needs.
const erc20ABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

// DefaultWindow is the block-range page size for log queries. Public
// RPC endpoints commonly cap eth_getLogs ranges, so fetches page in
// fixed windows and collect every page before returning.
const DefaultWindow uint64 = 5000

// contractCaller is the subset of ethclient used here, narrowed for
// tests.
type contractCaller interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// LogSource fetches raw records from a token contract's event logs over
// JSON-RPC.
type LogSource struct {
	client contractCaller
	token  common.Address
	from   uint64
	to     uint64
	window uint64
	logger *slog.Logger
	abi    abi.ABI
}

// LogSourceConfig configures a LogSource. All fields are explicit; the
// source keeps no process-wide state.
type LogSourceConfig struct {
	// RPCURL is the JSON-RPC endpoint.
	RPCURL string

	// Token is the contract whose logs are fetched.
	Token common.Address

	// FromBlock and ToBlock bound the fetch (inclusive).
	FromBlock, ToBlock uint64

	// Window overrides DefaultWindow when positive.
	Window uint64

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// NewLogSource dials the RPC endpoint and prepares a fetcher.
func NewLogSource(cfg LogSourceConfig) (*LogSource, error) {
	if cfg.Token == (common.Address{}) {
		return nil, fmt.Errorf("new log source: token address is required")
	}
	if cfg.ToBlock < cfg.FromBlock {
		return nil, fmt.Errorf("new log source: to_block %d precedes from_block %d", cfg.ToBlock, cfg.FromBlock)
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("new log source: dial %s: %w", cfg.RPCURL, err)
	}
	return newLogSource(client, cfg)
}

func newLogSource(client contractCaller, cfg LogSourceConfig) (*LogSource, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("new log source: parse abi: %w", err)
	}

	window := cfg.Window
	if window == 0 {
		window = DefaultWindow
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &LogSource{
		client: client,
		token:  cfg.Token,
		from:   cfg.FromBlock,
		to:     cfg.ToBlock,
		window: window,
		logger: logger,
		abi:    parsed,
	}, nil
}

// Records fetches all matching logs in paged block windows and converts
// them to raw records. Every page is collected before the batch is
// returned; no partial batch is ever delivered.
func (s *LogSource) Records(ctx context.Context) ([]event.RawRecord, error) {
	var records []event.RawRecord

	for start := s.from; start <= s.to; start += s.window {
		end := start + s.window - 1
		if end > s.to {
			end = s.to
		}

		logs, err := s.client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(end),
			Addresses: []common.Address{s.token},
			Topics:    [][]common.Hash{{topicTransfer, topicMint, topicBurn}},
		})
		if err != nil {
			return nil, fmt.Errorf("filter logs [%d,%d]: %w", start, end, err)
		}

		for _, lg := range logs {
			rec, ok := RecordFromLog(lg)
			if !ok {
				continue
			}
			records = append(records, rec)
		}

		s.logger.Debug("fetched log window",
			"from", start, "to", end, "logs", len(logs))
	}

	s.logger.Info("log fetch complete",
		"token", s.token.Hex(), "records", len(records))
	return records, nil
}

// LiveBalance reads balanceOf(holder) from the contract at head. Used
// only by the diagnostic compare, never as a correctness gate.
func (s *LogSource) LiveBalance(ctx context.Context, holder common.Address) (*big.Int, error) {
	data, err := s.abi.Pack("balanceOf", holder)
	if err != nil {
		return nil, fmt.Errorf("live balance: pack: %w", err)
	}

	out, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &s.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("live balance: call: %w", err)
	}

	results, err := s.abi.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("live balance: unpack: %w", err)
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("live balance: unexpected result type %T", results[0])
	}
	return balance, nil
}

// RecordFromLog converts one chain log into the normalizer's input
// schema. Returns ok=false for logs that are not ledger events (wrong
// signature or malformed topic arity); those are skipped, not errors.
//
// Coordinates map directly: unit = transaction hash, global order =
// (block number, transaction index), local order = log index.
func RecordFromLog(lg types.Log) (event.RawRecord, bool) {
	if len(lg.Topics) == 0 {
		return event.RawRecord{}, false
	}

	logIndex := lg.Index
	rec := event.RawRecord{
		Args:     make(map[string]string),
		Unit:     lg.TxHash.Hex(),
		Block:    lg.BlockNumber,
		TxIndex:  lg.TxIndex,
		LogIndex: &logIndex,
	}
	rec.Args["value"] = new(big.Int).SetBytes(lg.Data).String()

	switch lg.Topics[0] {
	case topicTransfer:
		if len(lg.Topics) != 3 {
			return event.RawRecord{}, false
		}
		rec.Kind = event.KindTransfer
		rec.Args["from"] = topicAddress(lg.Topics[1]).Hex()
		rec.Args["to"] = topicAddress(lg.Topics[2]).Hex()

	case topicMint:
		if len(lg.Topics) != 2 {
			return event.RawRecord{}, false
		}
		rec.Kind = event.KindMint
		rec.Args["to"] = topicAddress(lg.Topics[1]).Hex()

	case topicBurn:
		if len(lg.Topics) != 2 {
			return event.RawRecord{}, false
		}
		rec.Kind = event.KindBurn
		rec.Args["from"] = topicAddress(lg.Topics[1]).Hex()

	default:
		return event.RawRecord{}, false
	}

	return rec, true
}

// topicAddress extracts the address packed into an indexed topic.
func topicAddress(topic common.Hash) common.Address {
	return common.BytesToAddress(topic.Bytes())
}
