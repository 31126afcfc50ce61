package intcode

import "fmt"

// Opcode is the operation selector: the low two decimal digits of an
// instruction cell.
type Opcode int64

const (
	OpAdd  Opcode = 1  // mem[c] = a + b
	OpMul  Opcode = 2  // mem[c] = a * b
	OpIn   Opcode = 3  // mem[a] = next input
	OpOut  Opcode = 4  // emit a
	OpJit  Opcode = 5  // if a != 0 jump to b
	OpJif  Opcode = 6  // if a == 0 jump to b
	OpLt   Opcode = 7  // mem[c] = a < b
	OpEqu  Opcode = 8  // mem[c] = a == b
	OpRbo  Opcode = 9  // relative base += a
	OpHalt Opcode = 99 // stop
)

// OpcodeInfo describes the fixed shape of an instruction.
type OpcodeInfo struct {
	Name   string // Mnemonic used by the disassembler
	Params int    // Number of parameter cells following the opcode
	Store  int    // 1-based parameter slot written by the instruction, 0 if none
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpAdd:  {"ADD", 3, 3},
	OpMul:  {"MUL", 3, 3},
	OpIn:   {"IN", 1, 1},
	OpOut:  {"OUT", 1, 0},
	OpJit:  {"JIT", 2, 0},
	OpJif:  {"JIF", 2, 0},
	OpLt:   {"LT", 3, 3},
	OpEqu:  {"EQU", 3, 3},
	OpRbo:  {"RBO", 1, 0},
	OpHalt: {"HALT", 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Unknown opcodes get a name of the form "UNKNOWN(n)".
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(%d)", int64(op))}
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Params returns the number of parameter cells for this opcode.
func (op Opcode) Params() int {
	return GetOpcodeInfo(op).Params
}

// Width returns the total instruction length in cells (opcode plus params).
func (op Opcode) Width() int {
	return 1 + op.Params()
}

// IsJump reports whether the opcode may set the program counter directly.
func (op Opcode) IsJump() bool {
	return op == OpJit || op == OpJif
}

// Valid reports whether op is one of the ten defined opcodes.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// AllOpcodes returns every defined opcode in numeric order.
func AllOpcodes() []Opcode {
	return []Opcode{OpAdd, OpMul, OpIn, OpOut, OpJit, OpJif, OpLt, OpEqu, OpRbo, OpHalt}
}

// Mode is a parameter addressing mode.
type Mode uint8

const (
	ModePosition  Mode = 0 // operand is mem[param]
	ModeImmediate Mode = 1 // operand is the parameter cell itself
	ModeRelative  Mode = 2 // operand is mem[param + relative base]
)

func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeImmediate:
		return "immediate"
	case ModeRelative:
		return "relative"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// operand renders a parameter in listings: [n] for position, #n for
// immediate, @n for relative.
func (m Mode) operand(param int64) string {
	switch m {
	case ModeImmediate:
		return fmt.Sprintf("#%d", param)
	case ModeRelative:
		return fmt.Sprintf("@%d", param)
	}
	return fmt.Sprintf("[%d]", param)
}

// Instruction is a decoded instruction cell.
type Instruction struct {
	Op    Opcode
	Modes [3]Mode
}

// Width returns the instruction length in cells.
func (i Instruction) Width() int {
	return i.Op.Width()
}

// Encode turns the instruction back into its raw cell value.
func (i Instruction) Encode() int64 {
	return int64(i.Op) + 100*int64(i.Modes[0]) + 1000*int64(i.Modes[1]) + 10000*int64(i.Modes[2])
}
