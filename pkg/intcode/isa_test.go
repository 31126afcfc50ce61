package intcode

import (
	"errors"
	"sync"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		raw   int64
		op    Opcode
		modes [3]Mode
	}{
		{1, OpAdd, [3]Mode{}},
		{1002, OpMul, [3]Mode{ModePosition, ModeImmediate, ModePosition}},
		{21101, OpAdd, [3]Mode{ModeImmediate, ModeImmediate, ModeRelative}},
		{203, OpIn, [3]Mode{ModeRelative}},
		{109, OpRbo, [3]Mode{ModeImmediate}},
		{99, OpHalt, [3]Mode{}},
	}
	for _, tt := range tests {
		insn, err := ISAv9.Decode(tt.raw)
		if err != nil {
			t.Fatalf("Decode(%d): %v", tt.raw, err)
		}
		if insn.Op != tt.op || insn.Modes != tt.modes {
			t.Errorf("Decode(%d) = %v %v, want %v %v", tt.raw, insn.Op, insn.Modes, tt.op, tt.modes)
		}
		if insn.Encode() != tt.raw {
			t.Errorf("Encode(Decode(%d)) = %d", tt.raw, insn.Encode())
		}
	}
}

func TestDecodeIllegal(t *testing.T) {
	for _, raw := range []int64{0, 10, 98, -1, -1002, 301, 3001, 30001, 100001, 1 << 40} {
		if _, err := ISAv9.Decode(raw); !errors.Is(err, ErrIllegalInstruction) {
			t.Errorf("Decode(%d) = %v, want illegal instruction", raw, err)
		}
	}
	for _, raw := range []int64{9, 109, 203, 1201, 20001} {
		if _, err := ISAv5.Decode(raw); !errors.Is(err, ErrIllegalInstruction) {
			t.Errorf("v5 Decode(%d) = %v, want illegal instruction", raw, err)
		}
	}
}

// The decode table must agree with the reference decoder on every input it
// covers.
func TestDecodeTableMatchesReference(t *testing.T) {
	for _, isa := range []*ISA{ISAv5, ISAv9} {
		for raw := int64(-5); raw <= maxEncoded+5; raw++ {
			got, gotOK := isa.decode(raw)
			want, wantOK := isa.decodeSlow(raw)
			if got != want || gotOK != wantOK {
				t.Fatalf("%s: decode(%d) = %v,%v; reference %v,%v", isa, raw, got, gotOK, want, wantOK)
			}
		}
	}
}

func TestDecodeConcurrent(t *testing.T) {
	isa := NewISA("test", 64, MemorySparse, AllOpcodes(), []Mode{ModePosition, ModeImmediate, ModeRelative})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := int64(0); raw < 2000; raw++ {
				isa.decode(raw)
			}
		}()
	}
	wg.Wait()
	if insn, ok := isa.decode(1002); !ok || insn.Op != OpMul {
		t.Errorf("decode(1002) = %v, %v", insn, ok)
	}
}

func TestISAByName(t *testing.T) {
	for name, want := range map[string]*ISA{"": ISAv9, "v9": ISAv9, "v5": ISAv5} {
		got, err := ISAByName(name)
		if err != nil || got != want {
			t.Errorf("ISAByName(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ISAByName("v42"); err == nil {
		t.Error("expected error for unknown ISA")
	}
}

func TestOpcodeShape(t *testing.T) {
	widths := map[Opcode]int{
		OpAdd: 4, OpMul: 4, OpLt: 4, OpEqu: 4,
		OpJit: 3, OpJif: 3,
		OpIn: 2, OpOut: 2, OpRbo: 2,
		OpHalt: 1,
	}
	for _, op := range AllOpcodes() {
		if op.Width() != widths[op] {
			t.Errorf("%s width = %d, want %d", op, op.Width(), widths[op])
		}
	}
	if len(widths) != len(AllOpcodes()) {
		t.Errorf("AllOpcodes has %d entries, want %d", len(AllOpcodes()), len(widths))
	}
	if got := Opcode(42).String(); got != "UNKNOWN(42)" {
		t.Errorf("Opcode(42) = %q", got)
	}
	if Opcode(42).Valid() || !OpRbo.Valid() {
		t.Error("Valid is wrong")
	}
}
