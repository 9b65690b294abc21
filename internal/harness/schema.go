package harness

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// scenarioSchema constrains scenario YAML beyond what strict decoding
// catches: address and amount formats, non-negative coordinates, and
// the closed set of fatal error codes.
const scenarioSchema = `
#Address: =~"^0x[0-9a-fA-F]{40}$"
#Amount:  =~"^([0-9]+|0x[0-9a-fA-F]+)$"

#Record: {
	kind: string & !=""
	args: {[string]: string}
	unit:  string & !=""
	block: int & >=0
	tx_index?:  int & >=0
	log_index?: int & >=0
}

#Scenario: {
	name:        string & !=""
	description: string & !=""
	records: [...#Record] & [_, ...]
	expect: {
		balances?: {[=~"^0x[0-9a-fA-F]{40}$"]: #Amount}
		total_issued?:      #Amount
		applied?:           int & >=0
		skipped_redundant?: int & >=0
		error?: "SOURCE_FAILED" | "PRECONDITION_FAILED" | "INVARIANT_VIOLATION"
	}
	run_token?: string
}
`

// ValidateScenarioYAML checks scenario YAML against the CUE schema.
// The filename is used for error positions only.
func ValidateScenarioYAML(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(scenarioSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}
	scenarioDef := schema.LookupPath(cue.ParsePath("#Scenario"))
	if err := scenarioDef.Err(); err != nil {
		return fmt.Errorf("lookup scenario definition: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("extract YAML: %w", err)
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return fmt.Errorf("build YAML value: %w", err)
	}

	unified := scenarioDef.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("scenario does not match schema: %w", err)
	}

	return nil
}

// ValidateScenarioFile loads a scenario file and checks it against the
// CUE schema before the stricter YAML decode.
func ValidateScenarioFile(path string, data []byte) (*Scenario, error) {
	if err := ValidateScenarioYAML(path, data); err != nil {
		return nil, err
	}
	return ParseScenario(data)
}
