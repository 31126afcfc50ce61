package intcode

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalInstruction marks an opcode or mode digit outside the ISA.
	ErrIllegalInstruction = errors.New("illegal instruction")

	// ErrAddressFault marks a negative or out-of-range resolved address.
	ErrAddressFault = errors.New("address fault")

	// ErrInputUnderflow is returned by strict wrappers when the program
	// needs input that was never fed. Run itself reports StopNeedsInput.
	ErrInputUnderflow = errors.New("input underflow")

	// ErrOutputProtocol marks a fixed-arity output group cut short.
	ErrOutputProtocol = errors.New("output protocol mismatch")

	// ErrStepLimit is returned by bounded drivers when the instruction
	// budget runs out before the machine stops on its own.
	ErrStepLimit = errors.New("step limit reached")
)

// FaultKind classifies a fatal engine fault.
type FaultKind uint8

const (
	FaultIllegalInstruction FaultKind = iota + 1
	FaultAddress
)

func (k FaultKind) String() string {
	switch k {
	case FaultIllegalInstruction:
		return "illegal instruction"
	case FaultAddress:
		return "address fault"
	}
	return "unknown fault"
}

// Fault is a fatal engine error. A faulted machine never runs again.
type Fault struct {
	Kind   FaultKind
	Opcode int64  // raw instruction cell at PC
	PC     uint64 // address of the failing instruction
	Addr   int64  // offending address, for address faults
}

func (f *Fault) Error() string {
	if f.Kind == FaultAddress {
		return fmt.Sprintf("address fault: address %d (instruction %d at pc %d)", f.Addr, f.Opcode, f.PC)
	}
	return fmt.Sprintf("illegal instruction %d at pc %d", f.Opcode, f.PC)
}

func (f *Fault) Unwrap() error {
	if f.Kind == FaultAddress {
		return ErrAddressFault
	}
	return ErrIllegalInstruction
}

func addressFault(addr int64) *Fault {
	return &Fault{Kind: FaultAddress, Addr: addr}
}

// at fills in the diagnostic context of the instruction being executed.
func (f *Fault) at(pc uint64, raw int64) *Fault {
	f.PC = pc
	f.Opcode = raw
	return f
}

// UnderflowError reports a program that starved for input under a strict
// collection policy.
type UnderflowError struct {
	PC      uint64
	Opcode  int64
	Outputs []int64 // values produced before starving
}

func (e *UnderflowError) Error() string {
	return fmt.Sprintf("input underflow: instruction %d at pc %d needs input (%d outputs produced)",
		e.Opcode, e.PC, len(e.Outputs))
}

func (e *UnderflowError) Unwrap() error {
	return ErrInputUnderflow
}

// ProtocolError reports a fixed-arity output group that ended early.
type ProtocolError struct {
	Want   int
	Got    []int64
	Stop   Stop // what ended the group
	PC     uint64
	Opcode int64
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("output protocol mismatch: want %d values, got %d before %s (instruction %d at pc %d)",
		e.Want, len(e.Got), e.Stop.Kind, e.Opcode, e.PC)
}

func (e *ProtocolError) Unwrap() error {
	return ErrOutputProtocol
}

// IsFault reports whether err is a fatal engine fault and returns it.
func IsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
