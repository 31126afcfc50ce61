package intcode

import "fmt"

// Policy decides what a collecting wrapper does when the program starves
// for input before halting.
type Policy uint8

const (
	// CollectStrict treats starvation as fatal: the wrapper returns an
	// *UnderflowError carrying the outputs produced so far.
	CollectStrict Policy = iota
	// CollectUntilBlocked treats starvation as a normal end of collection,
	// like halting. The returned Stop tells the two apart.
	CollectUntilBlocked
)

func (p Policy) String() string {
	switch p {
	case CollectStrict:
		return "strict"
	case CollectUntilBlocked:
		return "until-blocked"
	}
	return fmt.Sprintf("policy(%d)", uint8(p))
}

// ParsePolicy maps a config name to a policy. The empty string selects
// CollectStrict.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "strict":
		return CollectStrict, nil
	case "until-blocked":
		return CollectUntilBlocked, nil
	}
	return 0, fmt.Errorf("unknown collect policy %q", name)
}

// Collect runs m, gathering every output until it halts, faults or starves.
// Starvation handling follows policy. Faults are returned as-is together
// with the outputs gathered before them.
func Collect(m *Machine, policy Policy) ([]int64, Stop, error) {
	return CollectLimit(m, policy, 0)
}

// CollectLimit is Collect with one budget of limit instructions shared by
// every resume. When the budget runs out it returns the outputs so far and
// ErrStepLimit. limit 0 means no bound.
func CollectLimit(m *Machine, policy Policy, limit uint64) ([]int64, Stop, error) {
	var out []int64
	start := m.steps
	for {
		budget := uint64(0)
		if limit > 0 {
			used := m.steps - start
			if used >= limit {
				return out, Stop{Kind: StopRunning}, ErrStepLimit
			}
			budget = limit - used
		}
		stop, err := m.RunLimit(budget)
		if err != nil {
			return out, stop, err
		}
		switch stop.Kind {
		case StopOutput:
			out = append(out, stop.Value)
		case StopNeedsInput:
			if policy == CollectStrict {
				return out, stop, &UnderflowError{PC: m.pc, Opcode: m.Peek(m.pc), Outputs: out}
			}
			return out, stop, nil
		default:
			return out, stop, nil
		}
	}
}

// Exec runs program to completion with the given input and returns every
// output. It uses CollectStrict: running out of input is an error.
func Exec(program []int64, input ...int64) ([]int64, error) {
	out, _, err := Collect(New(program, input), CollectStrict)
	return out, err
}

// ReadGroup runs m until it has produced n outputs. A group that never
// starts (the first Run needs input or halts) is a clean boundary and is
// reported through stop with a nil error. A group cut short is a
// *ProtocolError.
func ReadGroup(m *Machine, n int) ([]int64, Stop, error) {
	group := make([]int64, 0, n)
	for len(group) < n {
		stop, err := m.Run()
		if err != nil {
			return group, stop, err
		}
		if stop.Kind != StopOutput {
			if len(group) == 0 {
				return nil, stop, nil
			}
			return group, stop, &ProtocolError{
				Want:   n,
				Got:    group,
				Stop:   stop,
				PC:     m.pc,
				Opcode: m.Peek(m.pc),
			}
		}
		group = append(group, stop.Value)
	}
	return group, Stop{Kind: StopOutput, Value: group[n-1]}, nil
}
