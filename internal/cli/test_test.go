package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const failingScenarioYAML = `name: failing_expectation
description: Expected balance is wrong on purpose.
records:
  - kind: Mint
    args:
      to: "0x00000000000000000000000000000000000000a1"
      value: "100"
    unit: "0x01"
    block: 100
expect:
  balances:
    "0x00000000000000000000000000000000000000a1": "101"
  total_issued: "100"
`

func writeScenarioDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range scenarios {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestTestCommand_AllPass(t *testing.T) {
	dir := writeScenarioDir(t, map[string]string{"single_mint.yaml": validScenarioYAML})

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ single_mint")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommand_FailureExitCode(t *testing.T) {
	dir := writeScenarioDir(t, map[string]string{
		"single_mint.yaml": validScenarioYAML,
		"failing.yaml":     failingScenarioYAML,
	})

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing_expectation")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := writeScenarioDir(t, map[string]string{
		"single_mint.yaml": validScenarioYAML,
		"failing.yaml":     failingScenarioYAML,
	})

	out, err := execute(t, "test", dir, "--filter", "single_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommand_JSON(t *testing.T) {
	dir := writeScenarioDir(t, map[string]string{"single_mint.yaml": validScenarioYAML})

	out, err := execute(t, "--format", "json", "test", dir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "single_mint", resp.Data.Scenarios[0].Name)
}

func TestTestCommand_EmptyDir(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_MalformedScenario(t *testing.T) {
	dir := writeScenarioDir(t, map[string]string{"broken.yaml": "name: : :"})

	_, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
