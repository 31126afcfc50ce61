package intcode

import (
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseProgram(t *testing.T) {
	tests := []struct {
		text string
		want []int64
	}{
		{"1,0,0,0,99", []int64{1, 0, 0, 0, 99}},
		{"  1,0,0,0,99\n", []int64{1, 0, 0, 0, 99}},
		{"1, -2 ,3", []int64{1, -2, 3}},
		{"104,1125899906842624,99", []int64{104, 1125899906842624, 99}},
	}
	for _, tt := range tests {
		got, err := ParseProgram(tt.text)
		if err != nil {
			t.Fatalf("ParseProgram(%q): %v", tt.text, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseProgram(%q) (-want +got):\n%s", tt.text, diff)
		}
	}
}

func TestParseProgramErrors(t *testing.T) {
	tests := []struct {
		text   string
		index  int
		offset int
		field  string
	}{
		{"1,,2", 1, 2, ""},
		{"1,x", 1, 2, "x"},
		{"12,3,99999999999999999999", 2, 5, "99999999999999999999"},
		{"1,2,", 2, 4, ""},
	}
	for _, tt := range tests {
		_, err := ParseProgram(tt.text)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("ParseProgram(%q) = %v, want *ParseError", tt.text, err)
		}
		if perr.Index != tt.index || perr.Offset != tt.offset || perr.Field != tt.field {
			t.Errorf("ParseProgram(%q) = %+v, want index=%d offset=%d field=%q",
				tt.text, perr, tt.index, tt.offset, tt.field)
		}
	}

	_, err := ParseProgram("1,x")
	if !errors.Is(err, strconv.ErrSyntax) {
		t.Errorf("err = %v, want to wrap strconv.ErrSyntax", err)
	}
	if _, err := ParseProgram("   "); err == nil {
		t.Error("expected error for empty program")
	}
}

func TestFormatProgramRoundTrip(t *testing.T) {
	program := []int64{109, 1, 204, -1, 99}
	text := FormatProgram(program)
	if text != "109,1,204,-1,99" {
		t.Errorf("FormatProgram = %q", text)
	}
	got, err := ParseProgram(text)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if diff := cmp.Diff(program, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}
