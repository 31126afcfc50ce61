package intcode

// resolve maps parameter slot n (1-based) of the instruction at pc to a
// concrete address. Relative mode adds rb. A negative result is an address
// fault; so is reading the parameter cell itself out of fixed memory.
func resolve(mem *Memory, pc uint64, rb int64, mode Mode, n int) (uint64, *Fault) {
	slot := pc + uint64(n)
	if mode == ModeImmediate {
		return slot, nil
	}

	param, err := mem.Read(slot)
	if err != nil {
		return 0, err.(*Fault)
	}

	addr := param
	if mode == ModeRelative {
		addr += rb
	}
	if addr < 0 {
		return 0, addressFault(addr)
	}
	return uint64(addr), nil
}
