package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestRecordsJSONLinesAccumulate(t *testing.T) {
	res := execute(t, "{\"a\":1}\n{bad\n{\"a\":3}\n", "records", "json", "-", "--policy", "accumulate")
	assert.Equal(t, ExitFailure, res.code)

	out := lines(res.stdout)
	require.Len(t, out, 2)
	assert.JSONEq(t, `{"a":1}`, out[0])
	assert.JSONEq(t, `{"a":3}`, out[1])
	assert.Contains(t, res.stderr, "record error: -: record 1 (line 2)")
}

func TestRecordsFastFailStops(t *testing.T) {
	res := execute(t, "{\"a\":1}\n{bad\n{\"a\":3}\n", "records", "json", "-")
	assert.Equal(t, ExitFailure, res.code)
	assert.Len(t, lines(res.stdout), 1)
}

func TestRecordsCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "people.txt", "name,age\nada,36\nlinus,54\n")

	res := execute(t, "", "records", "csv", path)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	out := lines(res.stdout)
	require.Len(t, out, 2)
	assert.JSONEq(t, `{"name":"ada","age":36}`, out[0])
	assert.JSONEq(t, `{"name":"linus","age":54}`, out[1])
}

func TestRecordsAutoMergesInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `[1, 2]`)
	b := writeFile(t, dir, "b.yaml", "x\n---\ny\n")

	res := execute(t, "", "records", "auto", a, b)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, []string{"1", "2", `"x"`, `"y"`}, lines(res.stdout))
}

func TestRecordsUnknownMode(t *testing.T) {
	res := execute(t, "", "records", "klingon", "a.json")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "UNRESOLVABLE_FORMAT")
}
