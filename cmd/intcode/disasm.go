package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/intcode/pkg/intcode"
)

var (
	disasmISA string

	disasmCmd = &cobra.Command{
		Use:   "disasm [program]",
		Short: "Print a listing of a program",
		Long: `Disasm decodes a program linearly from address 0. Cells that are not
valid instructions are listed as DATA.`,
		Args: cobra.MaximumNArgs(1),
		RunE: disassemble,
	}
)

func init() {
	disasmCmd.Flags().StringVar(&disasmISA, "isa", "", "Instruction set: v5 or v9 (default from intcode.toml)")
	rootCmd.AddCommand(disasmCmd)
}

func disassemble(cmd *cobra.Command, args []string) error {
	name := cfg.Program.ISA
	if disasmISA != "" {
		name = disasmISA
	}
	isa, err := intcode.ISAByName(name)
	if err != nil {
		return err
	}
	program, err := programFrom(args)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), intcode.Disassemble(program, isa))
	return nil
}
