// Package intcode implements the Intcode virtual machine: a fetch-decode-execute
// interpreter over a growable integer memory tape.
//
// A Machine is a pull-based generator. Each call to Run executes instructions
// until the program produces an output, needs input that has not been fed
// yet, halts, or faults:
//
//	m := intcode.New(program, []int64{1})
//	for {
//		stop, err := m.Run()
//		if err != nil {
//			return err
//		}
//		switch stop.Kind {
//		case intcode.StopOutput:
//			use(stop.Value)
//		case intcode.StopNeedsInput:
//			m.Feed(next())
//		case intcode.StopHalted:
//			return nil
//		}
//	}
//
// # Architecture
//
//   - Memory: zero-indexed int64 cells. Reads past the extent yield 0, writes
//     grow it. Far-away writes land in a sparse overflow map.
//
//   - Decoder: an ISA turns a raw cell into an Instruction (opcode plus three
//     parameter modes). Every legal raw value is decoded once into an
//     immutable table shared by all machines of that ISA.
//
//   - Operand resolution: Position, Immediate and Relative modes map a
//     parameter slot to a concrete address. Negative addresses fault.
//
//   - Engine: the Run/Step loop, program counter and relative base.
//
// # Suspension
//
// Out advances the program counter before returning, so resuming continues
// with the next instruction. In on an empty queue leaves the program counter
// in place, so resuming retries the same instruction once input is fed.
// Halted and faulted machines stay that way: Run keeps returning the same
// result.
//
// # Concurrency
//
// A Machine is not safe for concurrent use. Drivers that need several
// futures of the same state call Clone, which shares nothing mutable with
// the original.
package intcode
