package server

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/intcode/pkg/intcode"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "intcode-lsp"

// LspServer checks Intcode program files as they are edited: malformed
// cells and illegal instructions are published as diagnostics, and hovering
// a cell shows the instruction it belongs to.
type LspServer struct {
	isa *intcode.ISA

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates an LSP server that decodes programs with isa. A nil isa
// means ISAv9.
func NewLSP(isa *intcode.ISA) *LspServer {
	if isa == nil {
		isa = intcode.ISAv9
	}
	s := &LspServer{
		isa:     isa,
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover: s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("%s initializing (isa %s)", lspName, s.isa.Name)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

// initialized and setTrace accept notifications every client sends. A nil
// handler would make glsp answer them as unsupported methods.
func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.mu.Lock()
	s.docs = make(map[string]string)
	s.mu.Unlock()
	return nil
}

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With full sync the last change carries the whole text.
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return hoverAt(text, params.Position, s.isa), nil
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := diagnose(text, s.isa)
	log.Debugf("%s: %d diagnostics", uri, len(diagnostics))
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// cellSpan is one comma-separated field of a program document.
type cellSpan struct {
	start, end int // byte range of the trimmed field
	value      int64
	err        error
}

// splitCells splits text into fields, keeping each field's position. A
// trailing comma or whitespace-only document yields no empty trailing cell.
func splitCells(text string) []cellSpan {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var spans []cellSpan
	fieldStart := 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != ',' {
			continue
		}
		start, end := fieldStart, i
		for start < end && isSpace(text[start]) {
			start++
		}
		for end > start && isSpace(text[end-1]) {
			end--
		}
		fieldStart = i + 1
		if start == end && i == len(text) && len(spans) > 0 {
			break
		}
		span := cellSpan{start: start, end: end}
		if start == end {
			span.err = fmt.Errorf("empty cell")
		} else {
			v, err := strconv.ParseInt(text[start:end], 10, 64)
			if err != nil {
				err = err.(*strconv.NumError).Err
			}
			span.value, span.err = v, err
		}
		spans = append(spans, span)
	}
	return spans
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// diagnose reports malformed cells as errors. When every cell parses, it
// walks the program from address 0 the way Disassemble does and reports
// cells at instruction boundaries that do not decode as warnings, since
// they may be data.
func diagnose(text string, isa *intcode.ISA) []protocol.Diagnostic {
	spans := splitCells(text)
	diagnostics := []protocol.Diagnostic{}

	for i, span := range spans {
		if span.err != nil {
			diagnostics = append(diagnostics, diagnostic(text, span, protocol.DiagnosticSeverityError,
				fmt.Sprintf("cell %d: %v", i, span.err)))
		}
	}
	if len(diagnostics) > 0 {
		return diagnostics
	}

	for pc := 0; pc < len(spans); {
		raw := spans[pc].value
		insn, err := isa.Decode(raw)
		switch {
		case err != nil:
			diagnostics = append(diagnostics, diagnostic(text, spans[pc], protocol.DiagnosticSeverityWarning,
				fmt.Sprintf("cell %d: %d is not a %s instruction", pc, raw, isa.Name)))
			pc++
		case pc+insn.Width() > len(spans):
			diagnostics = append(diagnostics, diagnostic(text, spans[pc], protocol.DiagnosticSeverityWarning,
				fmt.Sprintf("cell %d: %s needs %d parameters, program ends after %d",
					pc, insn.Op, insn.Op.Params(), len(spans)-pc-1)))
			pc++
		default:
			pc += insn.Width()
		}
	}
	return diagnostics
}

func diagnostic(text string, span cellSpan, severity protocol.DiagnosticSeverity, msg string) protocol.Diagnostic {
	source := lspName
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: positionOf(text, span.start),
			End:   positionOf(text, span.end),
		},
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

// hoverAt describes the instruction containing the cell under pos.
func hoverAt(text string, pos protocol.Position, isa *intcode.ISA) *protocol.Hover {
	offset, ok := offsetOf(text, pos)
	if !ok {
		return nil
	}
	spans := splitCells(text)
	cell := -1
	for i, span := range spans {
		if offset >= span.start && offset <= span.end && span.start < span.end {
			cell = i
			break
		}
	}
	if cell < 0 {
		return nil
	}

	cells := make([]int64, len(spans))
	for i, span := range spans {
		if span.err != nil {
			return &protocol.Hover{Contents: protocol.MarkupContent{
				Kind:  protocol.MarkupKindMarkdown,
				Value: fmt.Sprintf("cell %d does not parse", i),
			}}
		}
		cells[i] = span.value
	}

	pc, line := 0, ""
	for pc <= cell {
		var width int
		line, width = intcode.DisassembleAt(cells, pc, isa)
		if cell < pc+width {
			break
		}
		pc += width
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "```\n%s\n```\n", line)
	if cell == pc {
		fmt.Fprintf(&sb, "cell %d = %d", cell, cells[cell])
	} else {
		fmt.Fprintf(&sb, "cell %d = %d (parameter %d)", cell, cells[cell], cell-pc)
	}
	r := protocol.Range{Start: positionOf(text, spans[cell].start), End: positionOf(text, spans[cell].end)}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: sb.String()},
		Range:    &r,
	}
}

// positionOf converts a byte offset to an LSP position. Program text is
// ASCII, so bytes and UTF-16 units agree.
func positionOf(text string, offset int) protocol.Position {
	line := strings.Count(text[:offset], "\n")
	col := offset - (strings.LastIndexByte(text[:offset], '\n') + 1)
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

// offsetOf converts an LSP position to a byte offset, clamping the column
// to the line length.
func offsetOf(text string, pos protocol.Position) (int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return 0, false
	}
	offset := 0
	for _, l := range lines[:pos.Line] {
		offset += len(l) + 1
	}
	col := int(pos.Character)
	if col > len(lines[pos.Line]) {
		col = len(lines[pos.Line])
	}
	return offset + col, true
}

func boolPtr(b bool) *bool {
	return &b
}
