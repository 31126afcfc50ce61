package intcode

import (
	"fmt"
	"math"
	"sort"
)

// MemoryStrategy selects how a Memory grows.
type MemoryStrategy uint8

const (
	// MemorySparse grows a contiguous base geometrically for addresses near
	// the extent and keeps far-away cells in an overflow map.
	MemorySparse MemoryStrategy = iota
	// MemoryDense grows one contiguous slice by doubling, up to
	// MaxDenseLen cells.
	MemoryDense
	// MemoryFixed never grows; accesses past the initial image fault.
	MemoryFixed
)

func (s MemoryStrategy) String() string {
	switch s {
	case MemorySparse:
		return "sparse"
	case MemoryDense:
		return "dense"
	case MemoryFixed:
		return "fixed"
	}
	return fmt.Sprintf("strategy(%d)", uint8(s))
}

// ParseMemoryStrategy maps a config name to a strategy. The empty string
// selects MemorySparse.
func ParseMemoryStrategy(name string) (MemoryStrategy, error) {
	switch name {
	case "", "sparse":
		return MemorySparse, nil
	case "dense":
		return MemoryDense, nil
	case "fixed":
		return MemoryFixed, nil
	}
	return 0, fmt.Errorf("unknown memory strategy %q", name)
}

// MaxDenseLen bounds the contiguous base of dense memory. A write at or
// past it is an address fault rather than an allocation.
const MaxDenseLen = 1 << 26

const (
	minDenseCap = 16
	// denseSlack is how far past twice the base a write may land and still
	// grow the base instead of spilling into the overflow map.
	denseSlack = 1 << 16
)

// Memory is the machine's integer tape.
type Memory struct {
	strategy MemoryStrategy
	cells    []int64           // contiguous base, zero beyond extent
	overflow map[uint64]int64  // sparse cells past the base
	extent   uint64            // one past the highest address ever written
}

// NewMemory copies image into a new Memory.
func NewMemory(image []int64, strategy MemoryStrategy) *Memory {
	cells := make([]int64, len(image))
	copy(cells, image)
	return &Memory{
		strategy: strategy,
		cells:    cells,
		extent:   uint64(len(image)),
	}
}

// Strategy returns the growth strategy.
func (m *Memory) Strategy() MemoryStrategy {
	return m.strategy
}

// Len returns the extent: one past the highest address that holds a value.
func (m *Memory) Len() uint64 {
	return m.extent
}

// Read returns the value at addr. Unwritten cells read as 0 without
// allocating. Only fixed memory can fault.
func (m *Memory) Read(addr uint64) (int64, error) {
	if addr < uint64(len(m.cells)) {
		return m.cells[addr], nil
	}
	if m.strategy == MemoryFixed {
		return 0, addressFault(clampAddr(addr))
	}
	return m.overflow[addr], nil
}

// Write stores v at addr, growing the tape as needed.
func (m *Memory) Write(addr uint64, v int64) error {
	switch {
	case addr < uint64(len(m.cells)):
		m.cells[addr] = v
	case m.strategy == MemoryFixed:
		return addressFault(clampAddr(addr))
	case m.strategy == MemoryDense && addr >= MaxDenseLen:
		return addressFault(clampAddr(addr))
	case m.strategy == MemoryDense || addr < m.denseLimit():
		m.grow(addr)
		m.cells[addr] = v
	default:
		if m.overflow == nil {
			m.overflow = make(map[uint64]int64)
		}
		m.overflow[addr] = v
	}
	if addr >= m.extent {
		m.extent = addr + 1
	}
	return nil
}

func (m *Memory) denseLimit() uint64 {
	return uint64(len(m.cells))*2 + denseSlack
}

// grow extends the base so that addr is in range, pulling any overflow
// cells that now fall inside it.
func (m *Memory) grow(addr uint64) {
	n := uint64(cap(m.cells))
	if n < minDenseCap {
		n = minDenseCap
	}
	for n <= addr {
		n *= 2
	}
	cells := make([]int64, n)
	copy(cells, m.cells)
	for k, v := range m.overflow {
		if k < n {
			cells[k] = v
			delete(m.overflow, k)
		}
	}
	m.cells = cells
}

// Clone returns a deep copy.
func (m *Memory) Clone() *Memory {
	c := &Memory{
		strategy: m.strategy,
		cells:    make([]int64, len(m.cells)),
		extent:   m.extent,
	}
	copy(c.cells, m.cells)
	if len(m.overflow) > 0 {
		c.overflow = make(map[uint64]int64, len(m.overflow))
		for k, v := range m.overflow {
			c.overflow[k] = v
		}
	}
	return c
}

// Cells returns a copy of the contiguous part of the tape, trimmed to the
// extent.
func (m *Memory) Cells() []int64 {
	n := uint64(len(m.cells))
	if m.extent < n {
		n = m.extent
	}
	out := make([]int64, n)
	copy(out, m.cells[:n])
	return out
}

// Overflow returns a copy of the sparse cells past the contiguous base.
func (m *Memory) Overflow() map[uint64]int64 {
	if len(m.overflow) == 0 {
		return nil
	}
	out := make(map[uint64]int64, len(m.overflow))
	for k, v := range m.overflow {
		out[k] = v
	}
	return out
}

// OverflowAddrs returns the sparse addresses in ascending order.
func (m *Memory) OverflowAddrs() []uint64 {
	addrs := make([]uint64, 0, len(m.overflow))
	for k := range m.overflow {
		addrs = append(addrs, k)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// restoreMemory rebuilds a tape from its exported parts.
func restoreMemory(strategy MemoryStrategy, cells []int64, overflow map[uint64]int64, extent uint64) *Memory {
	m := NewMemory(cells, strategy)
	if len(overflow) > 0 {
		m.overflow = make(map[uint64]int64, len(overflow))
		for k, v := range overflow {
			m.overflow[k] = v
		}
	}
	if extent > m.extent {
		m.extent = extent
	}
	return m
}

func clampAddr(addr uint64) int64 {
	if addr > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(addr)
}
