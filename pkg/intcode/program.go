package intcode

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError locates a bad field in program text.
type ParseError struct {
	Index  int    // field index, 0-based
	Offset int    // byte offset of the field in the trimmed text
	Field  string // the offending text
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("program field %d at offset %d (%q): %v", e.Index, e.Offset, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseProgram parses comma-separated signed integers. Surrounding
// whitespace is trimmed, as is whitespace around each field.
func ParseProgram(text string) ([]int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty program")
	}

	fields := strings.Split(text, ",")
	program := make([]int64, 0, len(fields))
	offset := 0
	for i, field := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, &ParseError{Index: i, Offset: offset, Field: field, Err: err}
		}
		program = append(program, v)
		offset += len(field) + 1
	}
	return program, nil
}

// FormatProgram renders cells in the comma-separated program format.
func FormatProgram(cells []int64) string {
	parts := make([]string, len(cells))
	for i, v := range cells {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}
