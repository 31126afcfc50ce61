package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// project writes an intcode.toml and prog.txt into a temp dir and returns
// the dir.
func project(t *testing.T, program, toml string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prog.txt"), []byte(program+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "intcode.toml"), []byte(toml), 0o644))
	return dir
}

// resetFlags restores every flag to its default so that one execution of
// rootCmd does not leak into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := project(t, "3,0,102,-2,0,0,4,0,99", `
[program]
path = "prog.txt"
input = [21]
`)
	out, err := execute(t, "run", "--config", dir)
	require.NoError(t, err)
	require.Equal(t, "-42\n", out)
}

func TestDisasmCommand(t *testing.T) {
	dir := project(t, "1101,4,3,5,99", "")
	out, err := execute(t, "disasm", filepath.Join(dir, "prog.txt"), "--config", filepath.Join(dir, "intcode.toml"))
	require.NoError(t, err)
	require.Equal(t, "0000  ADD  #4 #3 [5]\n0004  HALT\n", out)
}

func TestAmpCommand(t *testing.T) {
	dir := project(t, "3,15,3,16,1002,16,10,16,1,16,15,15,4,15,99,0,0", `
[program]
path = "prog.txt"

[network]
phases = [0, 1, 2, 3, 4]
`)
	out, err := execute(t, "amp", "-p", "0,1,2,3,4", "-p", "4,3,2,1,0", "--config", dir)
	require.NoError(t, err)
	require.Equal(t, "4,3,2,1,0\t43210\n", out)
}

func TestAmpCommandSignal(t *testing.T) {
	// Outputs phase + signal.
	dir := project(t, "3,11,3,12,1,11,12,13,4,13,99", `
[program]
path = "prog.txt"
`)
	out, err := execute(t, "amp", "-p", "1", "--signal", "100", "--config", dir)
	require.NoError(t, err)
	require.Equal(t, "1\t101\n", out)

	out, err = execute(t, "amp", "-p", "1", "-p", "2", "--signal", "100", "--config", dir)
	require.NoError(t, err)
	require.Equal(t, "2\t102\n", out)
}
