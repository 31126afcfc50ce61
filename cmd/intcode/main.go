// intcode runs, inspects and serves Intcode programs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chazu/intcode/manifest"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("intcode.cli")

var (
	verbosity  int
	logFile    string
	configPath string

	// cfg is the loaded intcode.toml, or the defaults when there is none.
	cfg *manifest.Manifest

	rootCmd = &cobra.Command{
		Use:   "intcode",
		Short: "Run, inspect and serve Intcode programs",
		Long: `intcode executes Intcode programs, chains them as amplifiers or
packet networks, disassembles them, and serves live machines over HTTP.

Settings are read from the nearest intcode.toml; flags override them.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to intcode.toml or its directory (default: search upwards from the working directory)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// setup loads the manifest and configures logging. Flags win over the
// manifest's [log] section.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	switch {
	case configPath != "":
		dir := configPath
		if strings.HasSuffix(dir, manifest.FileName) {
			dir = filepath.Dir(dir)
		}
		cfg, err = manifest.Load(dir)
	default:
		cfg, err = manifest.FindAndLoad(".")
	}
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = manifest.Default()
	}

	level := cfg.Log.Verbosity
	if cmd.Flags().Changed("verbose") {
		level = verbosity
	}
	path := cfg.Log.Path
	if logFile != "" {
		path = logFile
	}
	if path == "" {
		commonlog.Configure(level, nil)
	} else {
		commonlog.Configure(level, &path)
	}
	if cfg.Dir != "" {
		log.Debugf("using %s", filepath.Join(cfg.Dir, manifest.FileName))
	}
	return nil
}

// programFrom loads the program named by args[0], falling back to the
// manifest's [program] path.
func programFrom(args []string) ([]int64, error) {
	if len(args) > 0 {
		return manifest.ReadProgram(args[0])
	}
	if cfg.Program.Path == "" {
		return nil, fmt.Errorf("no program given and no [program] path in %s", manifest.FileName)
	}
	return cfg.LoadProgram()
}
