package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/intcode/pkg/intcode"
	"github.com/chazu/intcode/pkg/snapshot"
	"github.com/chazu/intcode/server"
)

var (
	serveAddr     string
	serveDB       string
	serveMaxSteps uint64

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve live machines over Connect (HTTP/JSON and CBOR)",
		Long: `Serve starts the machine service. Clients create machines, feed them
input, run them and read their memory; idle machines are swept after the
configured TTL. With a snapshot database, machines can be saved by name and
restored later. Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: serve,
	}

	lspCmd = &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			isa, err := intcode.ISAByName(cfg.Program.ISA)
			if err != nil {
				return err
			}
			return server.NewLSP(isa).Run()
		},
	}
)

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveAddr, "addr", "", "Listen address (default from intcode.toml, :4567)")
	f.StringVar(&serveDB, "snapshot-db", "", "SQLite database for Save/Restore")
	f.Uint64Var(&serveMaxSteps, "max-steps", server.DefaultMaxSteps, "Instruction bound for a single Run or Drain (0 = unbounded)")
	rootCmd.AddCommand(serveCmd, lspCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	maxSteps := serveMaxSteps
	if !cmd.Flags().Changed("max-steps") && cfg.Run.MaxSteps > 0 {
		maxSteps = cfg.Run.MaxSteps
	}

	opts := []server.ServerOption{
		server.WithTTL(cfg.Server.TTL.Duration),
		server.WithSweepInterval(cfg.Server.SweepInterval.Duration),
		server.WithMaxSteps(maxSteps),
	}
	db := cfg.Server.SnapshotDB
	if serveDB != "" {
		db = serveDB
	}
	if db != "" {
		store, err := snapshot.Open(db)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, server.WithSnapshotStore(store))
	}

	srv := server.New(opts...)
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(addr) }()

	select {
	case err := <-errc:
		srv.Stop()
		return err
	case <-cmd.Context().Done():
		log.Notice("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
