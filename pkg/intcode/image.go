package intcode

import "fmt"

// Image is the complete execution context of a machine as plain data. It is
// what snapshots persist.
type Image struct {
	ISA          string
	Memory       MemoryStrategy
	PC           uint64
	RelativeBase int64
	Cells        []int64
	Overflow     map[uint64]int64
	Extent       uint64
	Input        []int64
	State        State
	Fault        *Fault
	Steps        uint64
}

// Image captures the machine's state. The result shares nothing with m.
func (m *Machine) Image() Image {
	img := Image{
		ISA:          m.isa.Name,
		Memory:       m.mem.Strategy(),
		PC:           m.pc,
		RelativeBase: m.rb,
		Cells:        m.mem.Cells(),
		Overflow:     m.mem.Overflow(),
		Extent:       m.mem.Len(),
		Input:        m.input.values(),
		State:        m.state,
		Steps:        m.steps,
	}
	if m.fault != nil {
		f := *m.fault
		img.Fault = &f
	}
	return img
}

// FromImage rebuilds a machine from a captured image.
func FromImage(img Image, opts ...Option) (*Machine, error) {
	isa, err := ISAByName(img.ISA)
	if err != nil {
		return nil, fmt.Errorf("restore image: %w", err)
	}
	if img.State == StateFaulted && img.Fault == nil {
		return nil, fmt.Errorf("restore image: faulted state without fault")
	}

	cfg := &machineConfig{isa: isa}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &Machine{
		mem:   restoreMemory(img.Memory, img.Cells, img.Overflow, img.Extent),
		pc:    img.PC,
		rb:    img.RelativeBase,
		isa:   isa,
		state: img.State,
		steps: img.Steps,
		Trace: cfg.trace,
	}
	m.input.push(img.Input...)
	if img.Fault != nil {
		f := *img.Fault
		m.fault = &f
	}
	return m, nil
}
