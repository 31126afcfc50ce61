package snapshot

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/chazu/intcode/pkg/intcode"
)

// suspended returns a machine paused on output with queued input, a moved
// relative base and a far overflow cell.
func suspended(t *testing.T) *intcode.Machine {
	t.Helper()
	m := intcode.New([]int64{109, 5, 3, 0, 204, -5, 3, 0, 99}, []int64{11, 12, 13})
	if err := m.Poke(1<<40, -9); err != nil {
		t.Fatalf("Poke: %v", err)
	}
	if stop, err := m.Run(); err != nil || stop.Kind != intcode.StopOutput {
		t.Fatalf("Run = %v, %v", stop, err)
	}
	return m
}

func TestWireRoundTrip(t *testing.T) {
	img := suspended(t).Image()

	data, err := Marshal(img)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(img, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("image (-want +got):\n%s", diff)
	}
}

func TestWireRoundTripFault(t *testing.T) {
	m := intcode.New([]int64{1, -1, 0, 0, 99}, nil, intcode.WithISA(intcode.ISAv5))
	m.Run()
	img := m.Image()

	data, err := Marshal(img)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(img.Fault, got.Fault); diff != "" {
		t.Errorf("fault (-want +got):\n%s", diff)
	}
	if got.ISA != "v5" || got.Memory != intcode.MemoryFixed || got.State != intcode.StateFaulted {
		t.Errorf("header = %s %v %v", got.ISA, got.Memory, got.State)
	}

	r, err := intcode.FromImage(got)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	if _, err := r.Run(); !errors.Is(err, intcode.ErrAddressFault) {
		t.Errorf("restored Run = %v, want address fault", err)
	}
}

func TestWireIsCanonical(t *testing.T) {
	a := intcode.Image{ISA: "v9", Cells: []int64{1}, Overflow: map[uint64]int64{}}
	b := intcode.Image{ISA: "v9", Cells: []int64{1}, Overflow: map[uint64]int64{}}
	for i := uint64(0); i < 50; i++ {
		a.Overflow[1<<20+i] = int64(i)
		b.Overflow[1<<20+49-i] = int64(49 - i)
	}
	da, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal a: %v", err)
	}
	db, err := Marshal(b)
	if err != nil {
		t.Fatalf("Marshal b: %v", err)
	}
	if !bytes.Equal(da, db) {
		t.Error("equal images encoded differently")
	}
	if Digest(da) != Digest(db) {
		t.Error("equal images have different digests")
	}
}

func TestWireResumes(t *testing.T) {
	m := suspended(t)
	data, err := Marshal(m.Image())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	img, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	r, err := intcode.FromImage(img)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}

	want, _, err := intcode.Collect(m, intcode.CollectStrict)
	if err != nil {
		t.Fatalf("original: %v", err)
	}
	got, _, err := intcode.Collect(r, intcode.CollectStrict)
	if err != nil {
		t.Fatalf("restored: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("outputs (-orig +restored):\n%s", diff)
	}
	if r.Peek(1<<40) != -9 || r.Peek(0) != 12 {
		t.Errorf("restored memory: mem[far]=%d mem[0]=%d", r.Peek(1<<40), r.Peek(0))
	}
}

func TestWireRejects(t *testing.T) {
	data, err := cborEncMode.Marshal(&wireImage{Version: FormatVersion + 1, ISA: "v9"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := Unmarshal(data); !errors.Is(err, ErrVersion) {
		t.Errorf("err = %v, want ErrVersion", err)
	}
	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error for garbage input")
	}
}
