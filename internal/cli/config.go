package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration consumed by commands that talk to
// a chain endpoint or the record cache.
type Config struct {
	// RPCURL is the JSON-RPC endpoint of an Ethereum node.
	RPCURL string `yaml:"rpc_url"`

	// Token is the ERC-20 contract address to observe.
	Token string `yaml:"token"`

	// FromBlock and ToBlock bound the fetch range (inclusive).
	FromBlock uint64 `yaml:"from_block"`
	ToBlock   uint64 `yaml:"to_block"`

	// Window caps the block span of a single log query. Zero means
	// the source default.
	Window uint64 `yaml:"window,omitempty"`

	// Database is the path of the SQLite record cache.
	Database string `yaml:"db,omitempty"`
}

// LoadConfig reads and strictly decodes a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc_url is required")
	}
	if !common.IsHexAddress(c.Token) {
		return fmt.Errorf("token is not a hex address: %q", c.Token)
	}
	if c.ToBlock < c.FromBlock {
		return fmt.Errorf("to_block %d is below from_block %d", c.ToBlock, c.FromBlock)
	}
	return nil
}

// TokenAddress returns the parsed contract address.
func (c *Config) TokenAddress() common.Address {
	return common.HexToAddress(c.Token)
}
