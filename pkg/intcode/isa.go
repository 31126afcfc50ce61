package intcode

import (
	"fmt"
	"sort"
	"sync"
)

// maxEncoded is the largest raw value that can decode: opcode 99 with every
// mode digit at its maximum of 2.
const maxEncoded = 22299

// ISA is an instruction-set configuration. The early 32-bit machine and the
// full 64-bit machine are both ISAs over the same engine.
type ISA struct {
	Name   string
	Width  int            // operand width in bits: 32 or 64
	Memory MemoryStrategy // default tape strategy for machines of this ISA

	opcodes [100]bool
	modes   [3]bool

	once  sync.Once
	table []decodeEntry // index: raw cell value, read-only once built
}

type decodeEntry struct {
	insn  Instruction
	legal bool
}

var (
	// ISAv5 is the narrow machine: no relative mode, no Rbo, 32-bit
	// arithmetic, fixed-size memory.
	ISAv5 = NewISA("v5", 32, MemoryFixed,
		[]Opcode{OpAdd, OpMul, OpIn, OpOut, OpJit, OpJif, OpLt, OpEqu, OpHalt},
		[]Mode{ModePosition, ModeImmediate})

	// ISAv9 is the full machine: all ten opcodes, all three modes, 64-bit
	// arithmetic and sparse growable memory.
	ISAv9 = NewISA("v9", 64, MemorySparse,
		AllOpcodes(),
		[]Mode{ModePosition, ModeImmediate, ModeRelative})
)

var isaRegistry = map[string]*ISA{
	ISAv5.Name: ISAv5,
	ISAv9.Name: ISAv9,
}

// NewISA builds an ISA restricted to the given opcodes and modes.
func NewISA(name string, width int, memory MemoryStrategy, opcodes []Opcode, modes []Mode) *ISA {
	isa := &ISA{Name: name, Width: width, Memory: memory}
	for _, op := range opcodes {
		if op.Valid() {
			isa.opcodes[op] = true
		}
	}
	for _, m := range modes {
		if int(m) < len(isa.modes) {
			isa.modes[m] = true
		}
	}
	return isa
}

// ISAByName returns a registered ISA. The empty name selects ISAv9.
func ISAByName(name string) (*ISA, error) {
	if name == "" {
		return ISAv9, nil
	}
	if isa, ok := isaRegistry[name]; ok {
		return isa, nil
	}
	return nil, fmt.Errorf("unknown ISA %q (known: %v)", name, ISANames())
}

// ISANames lists the registered ISA names.
func ISANames() []string {
	names := make([]string, 0, len(isaRegistry))
	for name := range isaRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supports reports whether op is part of this ISA.
func (isa *ISA) Supports(op Opcode) bool {
	return op >= 0 && int(op) < len(isa.opcodes) && isa.opcodes[op]
}

// Decode turns a raw cell into an instruction.
func (isa *ISA) Decode(raw int64) (Instruction, error) {
	insn, ok := isa.decode(raw)
	if !ok {
		return Instruction{}, fmt.Errorf("%w: %d", ErrIllegalInstruction, raw)
	}
	return insn, nil
}

func (isa *ISA) decode(raw int64) (Instruction, bool) {
	isa.once.Do(isa.buildTable)
	if raw < 0 || raw > maxEncoded {
		return Instruction{}, false
	}
	e := isa.table[raw]
	return e.insn, e.legal
}

func (isa *ISA) buildTable() {
	table := make([]decodeEntry, maxEncoded+1)
	for raw := range table {
		insn, ok := isa.decodeSlow(int64(raw))
		table[raw] = decodeEntry{insn: insn, legal: ok}
	}
	isa.table = table
}

// decodeSlow is the reference decoder the table is built from.
func (isa *ISA) decodeSlow(raw int64) (Instruction, bool) {
	if raw < 0 || raw/100000 != 0 {
		return Instruction{}, false
	}
	op := Opcode(raw % 100)
	if !isa.Supports(op) {
		return Instruction{}, false
	}
	insn := Instruction{Op: op}
	div := int64(100)
	for i := range insn.Modes {
		digit := raw / div % 10
		if digit >= int64(len(isa.modes)) || !isa.modes[digit] {
			return Instruction{}, false
		}
		insn.Modes[i] = Mode(digit)
		div *= 10
	}
	return insn, true
}

// wrap truncates an arithmetic result to the operand width.
func (isa *ISA) wrap(v int64) int64 {
	if isa.Width == 32 {
		return int64(int32(v))
	}
	return v
}

func (isa *ISA) String() string {
	return isa.Name
}
