package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "credit-scoring/internal/common/errors"
)

func testConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`
logging:
  level: warn
  output: %s
tracking:
  driver: sqlite
  sqlite_path: %s
training:
  synthetic_rows: 600
  max_depth: 4
`, filepath.Join(dir, "cli.log"), filepath.Join(dir, "mlruns", "tracking.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path, dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func readRecords(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]interface{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	return out
}

func TestSampleCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "data", "batch_input.jsonl")

	stdout, err := execute(t, "sample", "--output", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Sample input created")
	assert.Len(t, readRecords(t, out), 5)
}

func TestBatchCommand_WithSample(t *testing.T) {
	cfgPath, dir := testConfig(t)
	input := filepath.Join(dir, "data", "batch_input.jsonl")
	output := filepath.Join(dir, "data", "batch_output.jsonl")

	stdout, err := execute(t, "batch", "--config", cfgPath,
		"--with-sample", "--input", input, "--output", output, "--workers", "3")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Total processed: 5")
	assert.Contains(t, stdout, "Approved: 4 (80.0%)")
	assert.Contains(t, stdout, "Rejected: 1 (20.0%)")
	assert.Contains(t, stdout, "Output saved to: "+output)

	records := readRecords(t, output)
	require.Len(t, records, 5)
	for _, rec := range records {
		assert.Contains(t, rec, "prediction")
		assert.Contains(t, rec, "confidence")
	}
}

func TestBatchCommand_InvalidLine(t *testing.T) {
	cfgPath, dir := testConfig(t)
	input := filepath.Join(dir, "in.jsonl")
	output := filepath.Join(dir, "out.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(
		`{"age":30,"income":5000,"loan_amount":1000,"credit_history":"good"}`+"\n"+
			`{not json`+"\n"), 0o600))

	_, err := execute(t, "batch", "--config", cfgPath, "--input", input, "--output", output)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBatchRecordInvalid))

	stdout, err := execute(t, "batch", "--config", cfgPath, "--input", input, "--output", output, "--skip-invalid")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Total processed: 1")
	assert.Contains(t, stdout, "Skipped: 1 (lines [2])")
}

func TestBatchCommand_MissingInput(t *testing.T) {
	cfgPath, dir := testConfig(t)
	_, err := execute(t, "batch", "--config", cfgPath,
		"--input", filepath.Join(dir, "absent.jsonl"), "--output", filepath.Join(dir, "out.jsonl"))
	assert.Error(t, err)
}

func TestTrainCommand(t *testing.T) {
	cfgPath, _ := testConfig(t)

	stdout, err := execute(t, "train", "--config", cfgPath, "--run-name", "cli_test")
	require.NoError(t, err)
	assert.Contains(t, stdout, "test_accuracy")
	assert.Contains(t, stdout, "Top 10 most important features:")
	assert.Contains(t, stdout, "Run ID: ")
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "nope")
	assert.Error(t, err)
}
