package intcode

// Feed appends values to the input queue.
func (m *Machine) Feed(values ...int64) {
	m.input.push(values...)
}

// FeedText appends the code point of each character in s. Programs that
// speak the ASCII sub-protocol read one character per In.
func (m *Machine) FeedText(s string) {
	for _, r := range s {
		m.input.push(int64(r))
	}
}

// FeedLine is FeedText followed by a newline.
func (m *Machine) FeedLine(s string) {
	m.FeedText(s)
	m.input.push('\n')
}

// Pending returns the number of queued input values.
func (m *Machine) Pending() int {
	return m.input.len()
}

// Input returns a copy of the queued input values.
func (m *Machine) Input() []int64 {
	return m.input.values()
}
