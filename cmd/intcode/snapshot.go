package main

import (
	"bufio"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/intcode/pkg/intcode"
	"github.com/chazu/intcode/pkg/snapshot"
)

var (
	snapDB     string
	snapUpdate bool

	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Manage saved machine snapshots",
		Long: `Snapshot manages the SQLite database of named machine images used by
"intcode serve". Images record memory, registers, pending input and state, so
a resumed machine continues exactly where it was saved.`,
	}

	snapshotListCmd = &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots",
		Args:  cobra.NoArgs,
		RunE:  listSnapshots,
	}

	snapshotSaveCmd = &cobra.Command{
		Use:   "save <name> [program]",
		Short: "Save a freshly loaded program, with its input queued",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  saveSnapshot,
	}

	snapshotResumeCmd = &cobra.Command{
		Use:   "resume <name>",
		Short: "Restore a snapshot, feed it input and print its outputs",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeSnapshot,
	}

	snapshotDeleteCmd = &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *snapshot.Store) error {
				return store.Delete(cmd.Context(), args[0])
			})
		},
	}
)

func init() {
	snapshotCmd.PersistentFlags().StringVar(&snapDB, "db", "", "Snapshot database (default [server] snapshot-db)")

	f := snapshotSaveCmd.Flags()
	f.Int64SliceVarP(&runInput, "input", "i", nil, "Input values to queue")
	f.StringVar(&runText, "text", "", "ASCII input to queue")
	f.StringVar(&runISA, "isa", "", "Instruction set: v5 or v9")
	f.StringVar(&runMemory, "memory", "", "Memory strategy: sparse, dense or fixed")

	f = snapshotResumeCmd.Flags()
	f.Int64SliceVarP(&runInput, "input", "i", nil, "Input values to feed")
	f.StringVar(&runText, "text", "", "ASCII input to feed")
	f.StringVar(&runPolicy, "policy", "", "Starvation policy: strict or until-blocked")
	f.Uint64Var(&runMaxSteps, "max-steps", 0, "Stop after this many instructions (0 = unbounded)")
	f.BoolVar(&runASCII, "ascii", false, "Print outputs below 128 as text")
	f.BoolVar(&snapUpdate, "update", false, "Save the machine back under the same name afterwards")

	snapshotCmd.AddCommand(snapshotListCmd, snapshotSaveCmd, snapshotResumeCmd, snapshotDeleteCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func withStore(fn func(*snapshot.Store) error) error {
	path := cfg.Server.SnapshotDB
	if snapDB != "" {
		path = snapDB
	}
	if path == "" {
		return fmt.Errorf("no snapshot database: pass --db or set [server] snapshot-db")
	}
	store, err := snapshot.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func listSnapshots(cmd *cobra.Command, args []string) error {
	return withStore(func(store *snapshot.Store) error {
		entries, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tISA\tSTATE\tSTEPS\tSIZE\tSAVED\tDIGEST")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				e.Name, e.ISA, e.State, e.Steps, e.Size, e.Saved.Local().Format(time.DateTime), e.Digest[:12])
		}
		return w.Flush()
	})
}

func saveSnapshot(cmd *cobra.Command, args []string) error {
	if err := applyMachineFlags(cmd); err != nil {
		return err
	}
	program, err := programFrom(args[1:])
	if err != nil {
		return err
	}
	opts, err := cfg.MachineOptions()
	if err != nil {
		return err
	}
	m := intcode.New(program, cfg.Program.Input, opts...)
	m.FeedText(cfg.Program.Text)

	return withStore(func(store *snapshot.Store) error {
		e, err := store.Save(cmd.Context(), args[0], m)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.Name, e.Digest)
		return nil
	})
}

func resumeSnapshot(cmd *cobra.Command, args []string) error {
	if err := applyMachineFlags(cmd); err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}
	return withStore(func(store *snapshot.Store) error {
		ctx := cmd.Context()
		m, err := store.Load(ctx, args[0])
		if err != nil {
			return err
		}
		m.Feed(runInput...)
		m.FeedText(runText)

		out, stop, runErr := intcode.CollectLimit(m, policy, cfg.Run.MaxSteps)
		w := bufio.NewWriter(cmd.OutOrStdout())
		writeOutputs(w, out, runASCII)
		if err := w.Flush(); err != nil {
			return err
		}
		log.Infof("%s: %s after %d steps", args[0], stop, m.Steps())

		if snapUpdate {
			if _, err := store.Save(ctx, args[0], m); err != nil {
				return err
			}
		}
		return runErr
	})
}
