package intcode

import (
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("intcode.machine")

// State is the execution state of a Machine.
type State uint8

const (
	StateRunning State = iota
	StateSuspendedOutput
	StateSuspendedInput
	StateHalted
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuspendedOutput:
		return "suspended-output"
	case StateSuspendedInput:
		return "suspended-input"
	case StateHalted:
		return "halted"
	case StateFaulted:
		return "faulted"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Terminal reports whether no further execution is possible.
func (s State) Terminal() bool {
	return s == StateHalted || s == StateFaulted
}

// StopKind says why Run returned.
type StopKind uint8

const (
	// StopRunning is the zero kind: the machine did not stop on its own,
	// as when a step budget runs out.
	StopRunning StopKind = iota
	StopOutput
	StopNeedsInput
	StopHalted
	StopFaulted
)

func (k StopKind) String() string {
	switch k {
	case StopRunning:
		return "running"
	case StopOutput:
		return "output"
	case StopNeedsInput:
		return "needs-input"
	case StopHalted:
		return "halted"
	case StopFaulted:
		return "faulted"
	}
	return fmt.Sprintf("stop(%d)", uint8(k))
}

// Stop is the result of one Run call. Value is only meaningful for
// StopOutput.
type Stop struct {
	Kind  StopKind
	Value int64
}

func (s Stop) String() string {
	if s.Kind == StopOutput {
		return fmt.Sprintf("output(%d)", s.Value)
	}
	return s.Kind.String()
}

// Machine is one Intcode execution context: memory, program counter,
// relative base and input queue.
type Machine struct {
	mem   *Memory
	pc    uint64
	rb    int64
	input queue
	isa   *ISA

	state State
	fault *Fault
	steps uint64

	// Trace logs every executed instruction at debug level.
	Trace bool
}

// Option configures a new Machine.
type Option func(*machineConfig)

type machineConfig struct {
	isa       *ISA
	memory    MemoryStrategy
	memorySet bool
	trace     bool
}

// WithISA selects the instruction set. Defaults to ISAv9.
func WithISA(isa *ISA) Option {
	return func(c *machineConfig) { c.isa = isa }
}

// WithMemory overrides the ISA's default memory strategy.
func WithMemory(s MemoryStrategy) Option {
	return func(c *machineConfig) {
		c.memory = s
		c.memorySet = true
	}
}

// WithTrace enables per-instruction debug logging.
func WithTrace(on bool) Option {
	return func(c *machineConfig) { c.trace = on }
}

// New creates a machine from a program image and optional pre-seeded input.
// The program slice is copied.
func New(program []int64, input []int64, opts ...Option) *Machine {
	cfg := &machineConfig{isa: ISAv9}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.isa == nil {
		cfg.isa = ISAv9
	}
	if !cfg.memorySet {
		cfg.memory = cfg.isa.Memory
	}

	m := &Machine{
		mem:   NewMemory(program, cfg.memory),
		isa:   cfg.isa,
		Trace: cfg.trace,
	}
	m.input.push(input...)
	return m
}

// PC returns the program counter.
func (m *Machine) PC() uint64 { return m.pc }

// RelativeBase returns the relative base register.
func (m *Machine) RelativeBase() int64 { return m.rb }

// State returns the current execution state.
func (m *Machine) State() State { return m.state }

// Fault returns the fault that stopped the machine, or nil.
func (m *Machine) Fault() *Fault { return m.fault }

// Steps returns the number of instructions executed so far.
func (m *Machine) Steps() uint64 { return m.steps }

// ISA returns the machine's instruction set.
func (m *Machine) ISA() *ISA { return m.isa }

// Memory exposes the tape for inspection. Callers must not retain it
// across Clone boundaries.
func (m *Machine) Memory() *Memory { return m.mem }

// Peek reads a memory cell. Unwritten and out-of-range cells read as 0.
func (m *Machine) Peek(addr uint64) int64 {
	v, _ := m.mem.Read(addr)
	return v
}

// Poke patches a memory cell, for example to flip a mode-select cell before
// running.
func (m *Machine) Poke(addr uint64, v int64) error {
	if err := m.mem.Write(addr, v); err != nil {
		return fmt.Errorf("poke %d: %w", addr, err)
	}
	return nil
}

// Clone returns a machine with identical state and no shared mutable
// storage. Only the ISA's read-only decode table is shared.
func (m *Machine) Clone() *Machine {
	c := *m
	c.mem = m.mem.Clone()
	c.input = m.input.clone()
	if m.fault != nil {
		f := *m.fault
		c.fault = &f
	}
	return &c
}

// Run executes until the program outputs a value, needs input, halts or
// faults. A fault is returned both as StopFaulted and as a *Fault error.
func (m *Machine) Run() (Stop, error) {
	if stop, done, err := m.terminal(); done {
		return stop, err
	}
	for {
		stop, stopped, err := m.step()
		if stopped {
			return stop, err
		}
	}
}

// RunLimit is Run executing at most limit instructions. If the budget runs
// out first it returns ErrStepLimit and the machine can be resumed. limit 0
// means no bound.
func (m *Machine) RunLimit(limit uint64) (Stop, error) {
	if limit == 0 {
		return m.Run()
	}
	if stop, done, err := m.terminal(); done {
		return stop, err
	}
	start := m.steps
	for m.steps-start < limit {
		if stop, stopped, err := m.step(); stopped {
			return stop, err
		}
	}
	return Stop{Kind: StopRunning}, ErrStepLimit
}

// Step executes a single instruction. stopped reports whether the
// instruction suspended or terminated the machine, in which case stop is
// what Run would have returned. Drivers use Step to bound work.
func (m *Machine) Step() (stop Stop, stopped bool, err error) {
	if stop, done, err := m.terminal(); done {
		return stop, true, err
	}
	return m.step()
}

func (m *Machine) terminal() (Stop, bool, error) {
	switch m.state {
	case StateHalted:
		return Stop{Kind: StopHalted}, true, nil
	case StateFaulted:
		return Stop{Kind: StopFaulted}, true, m.fault
	}
	return Stop{}, false, nil
}

func (m *Machine) step() (Stop, bool, error) {
	m.state = StateRunning

	raw, err := m.mem.Read(m.pc)
	if err != nil {
		return m.trap(err.(*Fault).at(m.pc, 0))
	}
	insn, ok := m.isa.decode(raw)
	if !ok {
		return m.trap(&Fault{Kind: FaultIllegalInstruction, Opcode: raw, PC: m.pc})
	}
	if m.Trace {
		log.Debugf("[%06d] %-4s rb=%d in=%d", m.pc, insn.Op, m.rb, m.input.len())
	}
	m.steps++

	switch insn.Op {
	case OpAdd, OpMul, OpLt, OpEqu:
		a, f := m.load(insn, 1)
		if f != nil {
			return m.trap(f.at(m.pc, raw))
		}
		b, f := m.load(insn, 2)
		if f != nil {
			return m.trap(f.at(m.pc, raw))
		}
		var v int64
		switch insn.Op {
		case OpAdd:
			v = m.isa.wrap(a + b)
		case OpMul:
			v = m.isa.wrap(a * b)
		case OpLt:
			v = boolCell(a < b)
		case OpEqu:
			v = boolCell(a == b)
		}
		if f := m.store(insn, 3, v); f != nil {
			return m.trap(f.at(m.pc, raw))
		}
		m.pc += 4

	case OpIn:
		if m.input.len() == 0 {
			m.steps--
			m.state = StateSuspendedInput
			return Stop{Kind: StopNeedsInput}, true, nil
		}
		dst, f := resolve(m.mem, m.pc, m.rb, insn.Modes[0], 1)
		if f != nil {
			return m.trap(f.at(m.pc, raw))
		}
		v, _ := m.input.pop()
		if err := m.mem.Write(dst, v); err != nil {
			return m.trap(err.(*Fault).at(m.pc, raw))
		}
		m.pc += 2

	case OpOut:
		v, f := m.load(insn, 1)
		if f != nil {
			return m.trap(f.at(m.pc, raw))
		}
		m.pc += 2
		m.state = StateSuspendedOutput
		return Stop{Kind: StopOutput, Value: v}, true, nil

	case OpJit, OpJif:
		cond, f := m.load(insn, 1)
		if f != nil {
			return m.trap(f.at(m.pc, raw))
		}
		if (cond != 0) != (insn.Op == OpJit) {
			m.pc += 3
			break
		}
		target, f := m.load(insn, 2)
		if f != nil {
			return m.trap(f.at(m.pc, raw))
		}
		if target < 0 {
			return m.trap(addressFault(target).at(m.pc, raw))
		}
		m.pc = uint64(target)

	case OpRbo:
		v, f := m.load(insn, 1)
		if f != nil {
			return m.trap(f.at(m.pc, raw))
		}
		m.rb += v
		m.pc += 2

	case OpHalt:
		m.state = StateHalted
		return Stop{Kind: StopHalted}, true, nil

	default:
		// The decode table only yields the ISA's opcodes.
		return m.trap(&Fault{Kind: FaultIllegalInstruction, Opcode: raw, PC: m.pc})
	}

	return Stop{}, false, nil
}

// load reads the operand value of parameter slot n.
func (m *Machine) load(insn Instruction, n int) (int64, *Fault) {
	addr, f := resolve(m.mem, m.pc, m.rb, insn.Modes[n-1], n)
	if f != nil {
		return 0, f
	}
	v, err := m.mem.Read(addr)
	if err != nil {
		return 0, err.(*Fault)
	}
	return v, nil
}

// store writes v to the address named by parameter slot n.
func (m *Machine) store(insn Instruction, n int, v int64) *Fault {
	addr, f := resolve(m.mem, m.pc, m.rb, insn.Modes[n-1], n)
	if f != nil {
		return f
	}
	if err := m.mem.Write(addr, v); err != nil {
		return err.(*Fault)
	}
	return nil
}

// trap moves the machine into the terminal faulted state.
func (m *Machine) trap(f *Fault) (Stop, bool, error) {
	m.state = StateFaulted
	m.fault = f
	log.Debugf("machine faulted: %s", f)
	return Stop{Kind: StopFaulted}, true, f
}

func boolCell(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
