package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/intcode/pkg/intcode"
)

var (
	runInput    []int64
	runText     string
	runISA      string
	runMemory   string
	runPolicy   string
	runMaxSteps uint64
	runTrace    bool
	runASCII    bool

	runCmd = &cobra.Command{
		Use:   "run [program]",
		Short: "Run a program and print its outputs",
		Long: `Run loads a comma-separated program, queues the input, and collects
every output until the program halts.

With the strict policy (the default) a program that asks for input nobody
provided is an error; with until-blocked it just ends the run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runProgram,
	}
)

func init() {
	f := runCmd.Flags()
	f.Int64SliceVarP(&runInput, "input", "i", nil, "Input values, queued before --text")
	f.StringVar(&runText, "text", "", "ASCII input, queued one character per value")
	f.StringVar(&runISA, "isa", "", "Instruction set: v5 or v9")
	f.StringVar(&runMemory, "memory", "", "Memory strategy: sparse, dense or fixed")
	f.StringVar(&runPolicy, "policy", "", "Starvation policy: strict or until-blocked")
	f.Uint64Var(&runMaxSteps, "max-steps", 0, "Stop after this many instructions (0 = unbounded)")
	f.BoolVar(&runTrace, "trace", false, "Log every executed instruction at debug level")
	f.BoolVar(&runASCII, "ascii", false, "Print outputs below 128 as text")
	rootCmd.AddCommand(runCmd)
}

// applyMachineFlags copies the flags the user set onto cfg.
func applyMachineFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("input") {
		cfg.Program.Input = runInput
	}
	if f.Changed("text") {
		cfg.Program.Text = runText
	}
	if f.Changed("isa") {
		cfg.Program.ISA = runISA
	}
	if f.Changed("memory") {
		cfg.Program.Memory = runMemory
	}
	if f.Changed("policy") {
		cfg.Run.Policy = runPolicy
	}
	if f.Changed("max-steps") {
		cfg.Run.MaxSteps = runMaxSteps
	}
	if f.Changed("trace") {
		cfg.Run.Trace = runTrace
	}
	return cfg.Validate()
}

func runProgram(cmd *cobra.Command, args []string) error {
	if err := applyMachineFlags(cmd); err != nil {
		return err
	}
	program, err := programFrom(args)
	if err != nil {
		return err
	}
	opts, err := cfg.MachineOptions()
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	m := intcode.New(program, cfg.Program.Input, opts...)
	m.FeedText(cfg.Program.Text)

	out, stop, runErr := intcode.CollectLimit(m, policy, cfg.Run.MaxSteps)

	w := bufio.NewWriter(cmd.OutOrStdout())
	writeOutputs(w, out, runASCII)
	if err := w.Flush(); err != nil {
		return err
	}

	log.Infof("%s after %d steps (pc %d)", stop, m.Steps(), m.PC())
	if runErr != nil {
		return fmt.Errorf("after %d outputs: %w", len(out), runErr)
	}
	return nil
}

// writeOutputs prints one value per line, or text when ascii is set. In
// ascii mode values outside 0..127 still get a line of their own.
func writeOutputs(w *bufio.Writer, out []int64, ascii bool) {
	for _, v := range out {
		if ascii && v >= 0 && v < 128 {
			w.WriteByte(byte(v))
			continue
		}
		if ascii {
			fmt.Fprintf(w, "\n%d\n", v)
			continue
		}
		fmt.Fprintln(w, v)
	}
}
