package intcode

import "strings"

// ReadText collects ASCII output (values 0..127) as text. It stops at the
// first non-ASCII output, which is returned as a StopOutput, or when the
// machine needs input, halts or faults. Starvation is not an error here:
// interactive programs print a prompt and then wait.
func ReadText(m *Machine) (string, Stop, error) {
	var sb strings.Builder
	for {
		stop, err := m.Run()
		if err != nil {
			return sb.String(), stop, err
		}
		if stop.Kind != StopOutput || stop.Value < 0 || stop.Value > 127 {
			return sb.String(), stop, nil
		}
		sb.WriteByte(byte(stop.Value))
	}
}
