package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	scriptsDir = filepath.Join("testdata", "scripts")
	configDir  = filepath.Join("testdata", "config")
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// jsonResponse is CLIResponse with a typed payload.
type jsonResponse[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
	RunID  string    `json:"run_id"`
}

func decode[T any](t *testing.T, out string) jsonResponse[T] {
	t.Helper()
	var resp jsonResponse[T]
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func script(name string) string {
	return filepath.Join(scriptsDir, name)
}

func config(name string) string {
	return filepath.Join(configDir, name)
}
