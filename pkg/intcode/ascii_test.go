package intcode

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadTextStopsAtNonASCII(t *testing.T) {
	m := New([]int64{104, 72, 104, 105, 104, 10, 104, 1000, 99}, nil)

	text, stop, err := ReadText(m)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if text != "Hi\n" {
		t.Errorf("text = %q, want %q", text, "Hi\n")
	}
	if stop != (Stop{Kind: StopOutput, Value: 1000}) {
		t.Errorf("stop = %v, want output(1000)", stop)
	}

	text, stop, err = ReadText(m)
	if err != nil || text != "" || stop.Kind != StopHalted {
		t.Errorf("second ReadText = %q, %v, %v", text, stop, err)
	}
}

func TestReadTextPromptThenWait(t *testing.T) {
	// Echo every input character forever.
	m := New([]int64{3, 100, 4, 100, 1105, 1, 0}, nil)
	m.FeedLine("ok")

	text, stop, err := ReadText(m)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if text != "ok\n" || stop.Kind != StopNeedsInput {
		t.Errorf("ReadText = %q, %v; want %q, needs-input", text, stop, "ok\n")
	}
}

func TestFeedText(t *testing.T) {
	m := New([]int64{99}, nil)
	m.FeedText("ab")
	m.FeedLine("c")
	m.Feed(-1)
	if m.Pending() != 5 {
		t.Errorf("Pending = %d, want 5", m.Pending())
	}
	if diff := cmp.Diff([]int64{97, 98, 99, 10, -1}, m.Input()); diff != "" {
		t.Errorf("input (-want +got):\n%s", diff)
	}
}
