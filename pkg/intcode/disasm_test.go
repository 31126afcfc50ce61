package intcode

import (
	"strings"
	"testing"
)

func TestDisassemble(t *testing.T) {
	tests := []struct {
		name  string
		cells []int64
		isa   *ISA
		want  []string
	}{
		{
			name:  "modes",
			cells: []int64{21101, 4, 3, 2, 99},
			isa:   ISAv9,
			want:  []string{"0000  ADD  #4 #3 @2", "0004  HALT"},
		},
		{
			name:  "data after illegal cell",
			cells: []int64{1002, 4, 3, 4, 33},
			isa:   ISAv9,
			want:  []string{"0000  MUL  [4] #3 [4]", "0004  DATA 33"},
		},
		{
			name:  "immediate jump target",
			cells: []int64{1105, 1, 7, 3, 0, 4, 0, 99},
			isa:   ISAv9,
			want: []string{
				"0000  JIT  #1 #7 (-> 0007)",
				"0003  IN   [0]",
				"0005  OUT  [0]",
				"0007  HALT",
			},
		},
		{
			name:  "truncated instruction",
			cells: []int64{1, 0},
			isa:   ISAv9,
			want:  []string{"0000  DATA 1", "0001  DATA 0"},
		},
		{
			name:  "narrow isa rejects rbo",
			cells: []int64{109, 1, 99},
			isa:   ISAv5,
			want:  []string{"0000  DATA 109", "0001  DATA 1", "0002  HALT"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Disassemble(tt.cells, tt.isa)
			want := strings.Join(tt.want, "\n")
			if got != want {
				t.Errorf("Disassemble:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}

func TestDisassembleAtWidth(t *testing.T) {
	cells := []int64{109, 19, 99}
	line, width := DisassembleAt(cells, 0, nil)
	if width != 2 || line != "0000  RBO  #19" {
		t.Errorf("DisassembleAt = %q, %d", line, width)
	}
}
