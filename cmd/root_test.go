package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buffer := &bytes.Buffer{}
	rootCmd.SetOut(buffer)
	rootCmd.SetErr(buffer)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return buffer.String(), err
}

func TestRootShowsHelp(t *testing.T) {
	t.Chdir(t.TempDir())

	output, err := executeCommand(t)
	if err != nil {
		t.Fatalf("root command failed: %v", err)
	}
	for _, fragment := range []string{"clonal evolution", "run", "view", "export", "init"} {
		if !strings.Contains(strings.ToLower(output), fragment) {
			t.Errorf("help output missing %q", fragment)
		}
	}
}
