package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/intcode/pkg/intcode"
	"github.com/chazu/intcode/pkg/network"
)

var (
	ampPhases   []string
	ampFeedback bool
	ampLimit    int
	ampSignal   int64

	ampCmd = &cobra.Command{
		Use:   "amp [program]",
		Short: "Run a program as a chain of amplifiers",
		Long: `Amp clones the program once per phase setting and passes a signal
through the chain. With --feedback the last amplifier feeds the first until
they halt. Several --phases sets are evaluated concurrently
and the strongest signal is reported.`,
		Example: `  intcode amp amp.txt --phases 4,3,2,1,0
  intcode amp amp.txt --phases 9,8,7,6,5 -p 9,7,8,5,6 --feedback`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAmplifiers,
	}
)

func init() {
	f := ampCmd.Flags()
	f.StringArrayVarP(&ampPhases, "phases", "p", nil, "Comma-separated phase settings (repeatable)")
	f.BoolVar(&ampFeedback, "feedback", false, "Loop the last amplifier back to the first")
	f.IntVar(&ampLimit, "jobs", 0, "Chains evaluated at once (0 = unbounded)")
	f.Int64Var(&ampSignal, "signal", 0, "Initial signal")
	rootCmd.AddCommand(ampCmd)
}

func runAmplifiers(cmd *cobra.Command, args []string) error {
	program, err := programFrom(args)
	if err != nil {
		return err
	}
	opts, err := cfg.MachineOptions()
	if err != nil {
		return err
	}

	var sets [][]int64
	for _, arg := range ampPhases {
		phases, err := intcode.ParseProgram(arg)
		if err != nil {
			return fmt.Errorf("bad --phases %q: %w", arg, err)
		}
		sets = append(sets, phases)
	}
	if len(sets) == 0 && len(cfg.Network.Phases) > 0 {
		sets = append(sets, cfg.Network.Phases)
	}
	if len(sets) == 0 {
		return fmt.Errorf("no phase settings: pass --phases or set [network] phases")
	}
	feedback := cfg.Network.Feedback
	if cmd.Flags().Changed("feedback") {
		feedback = ampFeedback
	}

	signals, err := network.EvaluateAll(cmd.Context(), program, sets, ampSignal, feedback, ampLimit, opts...)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(sets) > 1 {
		best, at := network.Best(signals)
		log.Infof("evaluated %d phase sets", len(sets))
		fmt.Fprintf(out, "%s\t%d\n", intcode.FormatProgram(sets[at]), best)
		return nil
	}
	fmt.Fprintf(out, "%s\t%d\n", intcode.FormatProgram(sets[0]), signals[0])
	return nil
}
