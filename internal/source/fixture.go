package source

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/egpivo/ethereum-account-state/internal/event"
)

// FixtureRecord is the YAML shape of one raw record in a fixture file.
type FixtureRecord struct {
	Kind     string            `yaml:"kind"`
	Args     map[string]string `yaml:"args"`
	Unit     string            `yaml:"unit"`
	Block    uint64            `yaml:"block"`
	TxIndex  uint              `yaml:"tx_index"`
	LogIndex *uint             `yaml:"log_index,omitempty"`
}

// fixtureFile is the top-level YAML document.
type fixtureFile struct {
	Records []FixtureRecord `yaml:"records"`
}

// Fixture serves raw records from a YAML file. Decoding is strict:
// unknown fields are rejected so fixture typos fail loudly.
type Fixture struct {
	records []event.RawRecord
}

// LoadFixture reads and parses a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture parses fixture YAML bytes.
func ParseFixture(data []byte) (*Fixture, error) {
	var file fixtureFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if len(file.Records) == 0 {
		return nil, fmt.Errorf("parse fixture: no records")
	}

	records := make([]event.RawRecord, len(file.Records))
	for i, fr := range file.Records {
		records[i] = fr.RawRecord()
	}
	return &Fixture{records: records}, nil
}

// Records returns the fixture batch.
func (f *Fixture) Records(ctx context.Context) ([]event.RawRecord, error) {
	return f.records, nil
}

// RawRecord converts the YAML shape to the normalizer's input schema.
func (r FixtureRecord) RawRecord() event.RawRecord {
	return event.RawRecord{
		Kind:     r.Kind,
		Args:     r.Args,
		Unit:     r.Unit,
		Block:    r.Block,
		TxIndex:  r.TxIndex,
		LogIndex: r.LogIndex,
	}
}
