// Package network drives several Intcode machines cooperatively: amplifier
// chains, concurrent evaluation of many chains, and a packet-switched
// network of nodes. Each driver owns its machines; only the read-only decode
// table is shared between them.
package network

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/intcode/pkg/intcode"
)

var log = commonlog.GetLogger("intcode.network")

var (
	// ErrNoSignal means a stage halted without producing the signal the
	// next stage was waiting for.
	ErrNoSignal = errors.New("stage produced no signal")

	// ErrStalled means a stage asked for more input than the chain
	// protocol provides.
	ErrStalled = errors.New("stage stalled waiting for input")
)

// StageError attributes a chain failure to one stage.
type StageError struct {
	Stage int
	Phase int64
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (phase %d): %v", e.Stage, e.Phase, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Chain is a series of amplifiers: each stage's output is the next stage's
// input.
type Chain struct {
	phases []int64
	stages []*intcode.Machine
}

// NewChain loads program into one stage per phase setting. Each stage has its
// phase queued as its first input.
func NewChain(program []int64, phases []int64, opts ...intcode.Option) *Chain {
	return NewChainFrom(intcode.New(program, nil, opts...), phases)
}

// NewChainFrom clones template once per phase. The template is only read.
func NewChainFrom(template *intcode.Machine, phases []int64) *Chain {
	c := &Chain{
		phases: append([]int64(nil), phases...),
		stages: make([]*intcode.Machine, len(phases)),
	}
	for i, phase := range phases {
		m := template.Clone()
		m.Feed(phase)
		c.stages[i] = m
	}
	return c
}

// Len returns the number of stages.
func (c *Chain) Len() int {
	return len(c.stages)
}

// Stage returns the machine behind stage i.
func (c *Chain) Stage(i int) *intcode.Machine {
	return c.stages[i]
}

// RunLinear passes signal through every stage once and returns the last
// stage's first output.
func (c *Chain) RunLinear(signal int64) (int64, error) {
	for i, m := range c.stages {
		m.Feed(signal)
		stop, err := m.Run()
		if err != nil {
			return 0, c.stageErr(i, err)
		}
		switch stop.Kind {
		case intcode.StopOutput:
			signal = stop.Value
		case intcode.StopNeedsInput:
			return 0, c.stageErr(i, ErrStalled)
		default:
			return 0, c.stageErr(i, ErrNoSignal)
		}
	}
	return signal, nil
}

// RunFeedback wires the last stage back to the first and cycles the signal
// until a stage halts. It returns the last signal the final stage produced.
func (c *Chain) RunFeedback(signal int64) (int64, error) {
	if len(c.stages) == 0 {
		return signal, nil
	}
	last, produced := int64(0), false
	for round := 0; ; round++ {
		for i, m := range c.stages {
			m.Feed(signal)
			stop, err := m.Run()
			if err != nil {
				return 0, c.stageErr(i, err)
			}
			switch stop.Kind {
			case intcode.StopOutput:
				signal = stop.Value
				if i == len(c.stages)-1 {
					last, produced = signal, true
				}
			case intcode.StopNeedsInput:
				return 0, c.stageErr(i, ErrStalled)
			case intcode.StopHalted:
				if !produced {
					return 0, c.stageErr(i, ErrNoSignal)
				}
				log.Debugf("feedback loop finished after %d rounds", round+1)
				return last, nil
			}
		}
	}
}

func (c *Chain) stageErr(i int, err error) error {
	return &StageError{Stage: i, Phase: c.phases[i], Err: err}
}
