package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/intcode/pkg/intcode"
)

// ---------------------------------------------------------------------------
// Cell splitting
// ---------------------------------------------------------------------------

func TestSplitCells(t *testing.T) {
	spans := splitCells(" 1, -2 ,\n99,\n")
	require.Len(t, spans, 3)
	require.Equal(t, cellSpan{start: 1, end: 2, value: 1}, spans[0])
	require.Equal(t, cellSpan{start: 4, end: 6, value: -2}, spans[1])
	require.Equal(t, cellSpan{start: 9, end: 11, value: 99}, spans[2])

	require.Nil(t, splitCells("  \n"))

	spans = splitCells("1,,2")
	require.Len(t, spans, 3)
	require.ErrorContains(t, spans[1].err, "empty cell")
}

func TestPositionConversion(t *testing.T) {
	text := "1,2\n3,4\n99"
	require.Equal(t, protocol.Position{Line: 1, Character: 2}, positionOf(text, 6))
	require.Equal(t, protocol.Position{Line: 0, Character: 0}, positionOf(text, 0))

	offset, ok := offsetOf(text, protocol.Position{Line: 2, Character: 1})
	require.True(t, ok)
	require.Equal(t, 9, offset)

	offset, ok = offsetOf(text, protocol.Position{Line: 0, Character: 40})
	require.True(t, ok)
	require.Equal(t, 3, offset)

	_, ok = offsetOf(text, protocol.Position{Line: 3})
	require.False(t, ok)
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnoseClean(t *testing.T) {
	require.Empty(t, diagnose("1,0,0,3,99", intcode.ISAv9))
	require.Empty(t, diagnose("", intcode.ISAv9))
}

func TestDiagnoseParseError(t *testing.T) {
	diags := diagnose("1, x,99", intcode.ISAv9)
	require.Len(t, diags, 1)
	d := diags[0]
	require.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	require.Equal(t, lspName, *d.Source)
	require.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 3},
		End:   protocol.Position{Line: 0, Character: 4},
	}, d.Range)
	require.Contains(t, d.Message, "cell 1")
}

func TestDiagnoseIllegalInstruction(t *testing.T) {
	diags := diagnose("1,0,0,0,\n98,99", intcode.ISAv9)
	require.Len(t, diags, 1)
	require.Equal(t, protocol.DiagnosticSeverityWarning, *diags[0].Severity)
	require.Equal(t, protocol.Position{Line: 1, Character: 0}, diags[0].Range.Start)
	require.Contains(t, diags[0].Message, "98 is not a v9 instruction")
}

func TestDiagnoseTruncated(t *testing.T) {
	diags := diagnose("1,0", intcode.ISAv9)
	require.Len(t, diags, 2)
	require.Contains(t, diags[0].Message, "ADD needs 3 parameters")
	require.Contains(t, diags[1].Message, "cell 1")
}

func TestDiagnoseRespectsISA(t *testing.T) {
	// Relative base offset is not part of v5.
	require.Empty(t, diagnose("109,1,99", intcode.ISAv9))
	require.Len(t, diagnose("109,1,99", intcode.ISAv5), 2)
}

// ---------------------------------------------------------------------------
// Hover
// ---------------------------------------------------------------------------

func TestHoverParameter(t *testing.T) {
	text := "1,9,10,11,99"
	h := hoverAt(text, protocol.Position{Line: 0, Character: 5}, intcode.ISAv9)
	require.NotNil(t, h)
	content := h.Contents.(protocol.MarkupContent)
	require.Equal(t, protocol.MarkupKindMarkdown, content.Kind)
	require.Equal(t, "```\n0000  ADD  [9] [10] [11]\n```\ncell 2 = 10 (parameter 2)", content.Value)
	require.Equal(t, protocol.Position{Line: 0, Character: 4}, h.Range.Start)
	require.Equal(t, protocol.Position{Line: 0, Character: 6}, h.Range.End)
}

func TestHoverOpcode(t *testing.T) {
	h := hoverAt("1,9,10,11,99", protocol.Position{Line: 0, Character: 10}, intcode.ISAv9)
	require.NotNil(t, h)
	require.Contains(t, h.Contents.(protocol.MarkupContent).Value, "0004  HALT")
	require.Contains(t, h.Contents.(protocol.MarkupContent).Value, "cell 4 = 99")
}

func TestHoverNothing(t *testing.T) {
	require.Nil(t, hoverAt("1,0,0,0,99", protocol.Position{Line: 4}, intcode.ISAv9))
	require.Nil(t, hoverAt("1,  0", protocol.Position{Line: 0, Character: 2}, intcode.ISAv9))
}

func TestLifecycleNotificationsAccepted(t *testing.T) {
	s := NewLSP(nil)
	s.handler.SetInitialized(true)
	for _, method := range []protocol.Method{protocol.MethodInitialized, protocol.MethodSetTrace} {
		params := json.RawMessage(`{}`)
		if method == protocol.MethodSetTrace {
			params = json.RawMessage(`{"value":"off"}`)
		}
		_, validMethod, validParams, err := s.handler.Handle(&glsp.Context{Method: string(method), Params: params})
		require.True(t, validMethod, string(method))
		require.True(t, validParams, string(method))
		require.NoError(t, err, string(method))
	}
}
