package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/intcode/pkg/intcode"
)

const (
	DefaultIdleValue  = -1
	DefaultNATAddress = 255
)

var (
	// ErrUnknownAddress means a node sent a packet to an address that is
	// neither a node nor the NAT.
	ErrUnknownAddress = errors.New("packet to unknown address")

	// ErrRoundLimit means Run gave up before the observer was satisfied.
	ErrRoundLimit = errors.New("round limit reached")

	// ErrAllHalted means every node halted, so no further packets can flow.
	ErrAllHalted = errors.New("all nodes halted")
)

// Packet is one (destination, x, y) output group.
type Packet struct {
	Dst, X, Y int64
}

// NATEventKind tells whether the NAT took in a packet or released one.
type NATEventKind uint8

const (
	NATReceived NATEventKind = iota
	NATReleased
)

func (k NATEventKind) String() string {
	if k == NATReleased {
		return "released"
	}
	return "received"
}

// NATEvent is passed to the Run observer.
type NATEvent struct {
	Kind  NATEventKind
	Round int
	X, Y  int64
}

// Network is a set of nodes running the same program, addressed 0..n-1.
// Nodes exchange three-value packets; packets to the NAT address are held
// and re-sent to node 0 once a whole round passes with no traffic.
type Network struct {
	nodes  []*intcode.Machine
	halted []bool
	idle   int64
	nat    int64

	natPacket *Packet
	sent      uint64
}

// NetworkOption configures a Network.
type NetworkOption func(*Network)

// WithIdleValue sets the value fed to a node whose queue is empty.
func WithIdleValue(v int64) NetworkOption {
	return func(n *Network) { n.idle = v }
}

// WithNATAddress sets the address the NAT listens on.
func WithNATAddress(addr int64) NetworkOption {
	return func(n *Network) { n.nat = addr }
}

// NewNetwork clones template into size nodes and feeds each its address.
func NewNetwork(template *intcode.Machine, size int, opts ...NetworkOption) *Network {
	n := &Network{
		nodes:  make([]*intcode.Machine, size),
		halted: make([]bool, size),
		idle:   DefaultIdleValue,
		nat:    DefaultNATAddress,
	}
	for _, opt := range opts {
		opt(n)
	}
	for i := range n.nodes {
		m := template.Clone()
		m.Feed(int64(i))
		n.nodes[i] = m
	}
	return n
}

// Size returns the number of nodes.
func (n *Network) Size() int {
	return len(n.nodes)
}

// Node returns the machine at address i.
func (n *Network) Node(i int) *intcode.Machine {
	return n.nodes[i]
}

// Sent returns the number of packets delivered between nodes so far.
func (n *Network) Sent() uint64 {
	return n.sent
}

// NAT returns the packet the NAT currently holds.
func (n *Network) NAT() (Packet, bool) {
	if n.natPacket == nil {
		return Packet{}, false
	}
	return *n.natPacket, true
}

// Send injects a packet from outside the network.
func (n *Network) Send(p Packet) error {
	if p.Dst == n.nat {
		n.natPacket = &p
		return nil
	}
	if p.Dst < 0 || p.Dst >= int64(len(n.nodes)) {
		return fmt.Errorf("send to %d: %w", p.Dst, ErrUnknownAddress)
	}
	n.nodes[p.Dst].Feed(p.X, p.Y)
	n.sent++
	return nil
}

// Run schedules nodes round-robin. In each round every node runs until it
// needs input, its outgoing packets are delivered, and the next node runs.
// observe is called for every packet the NAT receives and every packet it
// releases; Run returns that packet as soon as observe returns true. A nil
// observe never stops the network. maxRounds <= 0 means no bound.
func (n *Network) Run(ctx context.Context, maxRounds int, observe func(NATEvent) bool) (Packet, error) {
	if observe == nil {
		observe = func(NATEvent) bool { return false }
	}
	for round := 0; maxRounds <= 0 || round < maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return Packet{}, err
		}

		busy, running := false, 0
		for i, m := range n.nodes {
			if n.halted[i] {
				continue
			}
			if m.Pending() == 0 {
				m.Feed(n.idle)
			}
			for {
				group, stop, err := intcode.ReadGroup(m, 3)
				if err != nil {
					return Packet{}, fmt.Errorf("node %d: %w", i, err)
				}
				if group == nil {
					if stop.Kind == intcode.StopHalted {
						n.halted[i] = true
					}
					break
				}
				busy = true
				p := Packet{Dst: group[0], X: group[1], Y: group[2]}
				if p.Dst == n.nat {
					n.natPacket = &p
					if observe(NATEvent{Kind: NATReceived, Round: round, X: p.X, Y: p.Y}) {
						return p, nil
					}
					continue
				}
				if err := n.Send(p); err != nil {
					return Packet{}, fmt.Errorf("node %d: %w", i, err)
				}
			}
			if !n.halted[i] {
				running++
			}
		}

		if running == 0 {
			return Packet{}, ErrAllHalted
		}
		if busy || n.natPacket == nil {
			continue
		}
		p := *n.natPacket
		p.Dst = 0
		log.Debugf("round %d idle, NAT releases (%d, %d)", round, p.X, p.Y)
		if err := n.Send(p); err != nil {
			return Packet{}, err
		}
		if observe(NATEvent{Kind: NATReleased, Round: round, X: p.X, Y: p.Y}) {
			return p, nil
		}
	}
	return Packet{}, fmt.Errorf("%w (%d)", ErrRoundLimit, maxRounds)
}
