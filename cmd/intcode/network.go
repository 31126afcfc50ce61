package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/intcode/pkg/intcode"
	"github.com/chazu/intcode/pkg/network"
)

var (
	netNodes  int
	netUntil  string
	netRounds int

	networkCmd = &cobra.Command{
		Use:   "network [program]",
		Short: "Run a program as a packet-switched network of nodes",
		Long: `Network boots one node per address, all running the same program, and
routes three-value packets between them. Packets sent to the NAT address are
held and re-sent to node 0 whenever the network goes idle.

--until first stops at the first packet the NAT receives; --until repeat
stops when the NAT releases the same y value twice in a row. The y value is
printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runNetwork,
	}
)

func init() {
	f := networkCmd.Flags()
	f.IntVar(&netNodes, "nodes", 0, "Number of nodes (default from intcode.toml)")
	f.StringVar(&netUntil, "until", "first", "Stop condition: first or repeat")
	f.IntVar(&netRounds, "rounds", 100000, "Give up after this many scheduling rounds (0 = never)")
	rootCmd.AddCommand(networkCmd)
}

func runNetwork(cmd *cobra.Command, args []string) error {
	program, err := programFrom(args)
	if err != nil {
		return err
	}
	opts, err := cfg.MachineOptions()
	if err != nil {
		return err
	}
	nodes := cfg.Network.Nodes
	if netNodes > 0 {
		nodes = netNodes
	}

	var observe func(network.NATEvent) bool
	switch netUntil {
	case "first":
		observe = func(ev network.NATEvent) bool { return ev.Kind == network.NATReceived }
	case "repeat":
		var last *int64
		observe = func(ev network.NATEvent) bool {
			if ev.Kind != network.NATReleased {
				return false
			}
			if last != nil && *last == ev.Y {
				return true
			}
			y := ev.Y
			last = &y
			return false
		}
	default:
		return fmt.Errorf("unknown --until %q (want first or repeat)", netUntil)
	}

	net := network.NewNetwork(intcode.New(program, nil, opts...), nodes, cfg.NetworkOptions()...)
	p, err := net.Run(cmd.Context(), netRounds, observe)
	if err != nil {
		return err
	}
	log.Infof("%d packets delivered", net.Sent())
	fmt.Fprintln(cmd.OutOrStdout(), p.Y)
	return nil
}
