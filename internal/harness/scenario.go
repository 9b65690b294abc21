package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/egpivo/ethereum-account-state/internal/source"
)

// Scenario defines a conformance test scenario.
// Scenarios feed a fixed batch of raw records through the
// reconstruction engine and assert on the resulting state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Records is the raw record batch to reconstruct from.
	Records []source.FixtureRecord `yaml:"records"`

	// Expect describes the required outcome of the run.
	Expect ExpectClause `yaml:"expect"`

	// RunToken is an optional fixed run token for deterministic
	// golden file comparison. Defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`
}

// ExpectClause specifies the expected reconstruction outcome.
// Exactly one of Error or the state fields applies: when Error is set
// the run must fail with that code, otherwise the final state must
// match.
type ExpectClause struct {
	// Balances maps holder address to expected decimal balance.
	// Subset match is not performed; addresses absent from the map
	// must hold a zero balance.
	Balances map[string]string `yaml:"balances,omitempty"`

	// TotalIssued is the expected total supply as a decimal string.
	TotalIssued string `yaml:"total_issued,omitempty"`

	// Applied is the expected number of applied events.
	// Negative means "not asserted".
	Applied *int `yaml:"applied,omitempty"`

	// SkippedRedundant is the expected number of redundant burn
	// signals skipped during resolution.
	SkippedRedundant *int `yaml:"skipped_redundant,omitempty"`

	// Error is the expected fatal error code (e.g.
	// "PRECONDITION_FAILED"). Empty means the run must succeed.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation
// (catches typos like "expectd:" vs "expect:").
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Records) == 0 {
		return fmt.Errorf("records list is required and must be non-empty")
	}

	for i, rec := range s.Records {
		if rec.Kind == "" {
			return fmt.Errorf("records[%d]: kind is required", i)
		}
		if rec.Unit == "" {
			return fmt.Errorf("records[%d]: unit is required", i)
		}
	}

	if s.Expect.Error == "" && len(s.Expect.Balances) == 0 && s.Expect.TotalIssued == "" {
		return fmt.Errorf("expect: either error or a state expectation is required")
	}
	if s.Expect.Error != "" && (len(s.Expect.Balances) > 0 || s.Expect.TotalIssued != "") {
		return fmt.Errorf("expect: error and state expectations are mutually exclusive")
	}

	return nil
}
