package intcode

import (
	"fmt"
	"strings"
)

// DisassembleAt renders the instruction at pc and returns its width in
// cells. Cells that do not decode under isa, or whose parameters run past
// the end of cells, render as DATA with width 1.
func DisassembleAt(cells []int64, pc int, isa *ISA) (string, int) {
	if isa == nil {
		isa = ISAv9
	}
	raw := cells[pc]
	insn, ok := isa.decode(raw)
	if !ok || pc+insn.Width() > len(cells) {
		return fmt.Sprintf("%04d  DATA %d", pc, raw), 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%04d  %-4s", pc, insn.Op)
	for n := 1; n <= insn.Op.Params(); n++ {
		sb.WriteByte(' ')
		sb.WriteString(insn.Modes[n-1].operand(cells[pc+n]))
	}
	if insn.Op.IsJump() && insn.Modes[1] == ModeImmediate {
		fmt.Fprintf(&sb, " (-> %04d)", cells[pc+2])
	}
	return strings.TrimRight(sb.String(), " "), insn.Width()
}

// Disassemble returns a listing of cells, one instruction per line. The walk
// is linear: data embedded after a Halt is decoded as if it were code.
func Disassemble(cells []int64, isa *ISA) string {
	lines := make([]string, 0, len(cells))
	for pc := 0; pc < len(cells); {
		line, width := DisassembleAt(cells, pc, isa)
		lines = append(lines, line)
		pc += width
	}
	return strings.Join(lines, "\n")
}
