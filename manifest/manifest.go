// Package manifest handles intcode.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chazu/intcode/pkg/intcode"
	"github.com/chazu/intcode/pkg/network"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "intcode.toml"

// Manifest represents an intcode.toml configuration.
type Manifest struct {
	Program ProgramConfig `toml:"program"`
	Run     RunConfig     `toml:"run"`
	Network NetworkConfig `toml:"network"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the intcode.toml file (set at load time).
	Dir string `toml:"-"`
}

// ProgramConfig names the program image and how to start it.
type ProgramConfig struct {
	Path   string  `toml:"path"`
	Input  []int64 `toml:"input,omitempty"`
	Text   string  `toml:"text,omitempty"` // ASCII input, queued after Input
	ISA    string  `toml:"isa"`
	Memory string  `toml:"memory,omitempty"` // empty: the ISA's default
}

// RunConfig bounds and shapes a single run.
type RunConfig struct {
	MaxSteps uint64 `toml:"max-steps"` // 0 = unbounded
	Policy   string `toml:"policy"`
	Trace    bool   `toml:"trace"`
}

// NetworkConfig configures amplifier chains and packet networks.
type NetworkConfig struct {
	Phases     []int64 `toml:"phases,omitempty"`
	Feedback   bool    `toml:"feedback"`
	Nodes      int     `toml:"nodes"`
	IdleValue  int64   `toml:"idle-value"`
	NATAddress int64   `toml:"nat-address"`
}

// ServerConfig configures the machine service.
type ServerConfig struct {
	Addr          string   `toml:"addr"`
	SweepInterval Duration `toml:"sweep-interval"`
	TTL           Duration `toml:"ttl"`
	SnapshotDB    string   `toml:"snapshot-db,omitempty"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path,omitempty"`
}

// Duration is a time.Duration written as a string such as "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns a manifest with every default filled in.
func Default() *Manifest {
	return &Manifest{
		Program: ProgramConfig{ISA: intcode.ISAv9.Name},
		Run:     RunConfig{Policy: intcode.CollectStrict.String()},
		Network: NetworkConfig{
			Nodes:      50,
			IdleValue:  network.DefaultIdleValue,
			NATAddress: network.DefaultNATAddress,
		},
		Server: ServerConfig{
			Addr:          ":4567",
			SweepInterval: Duration{5 * time.Minute},
			TTL:           Duration{30 * time.Minute},
		},
	}
}

// Load parses an intcode.toml file from the given directory. Keys missing
// from the file keep their Default values.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find an intcode.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Write encodes m as TOML to path.
func (m *Manifest) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

// Validate checks the enumerated settings.
func (m *Manifest) Validate() error {
	if _, err := intcode.ISAByName(m.Program.ISA); err != nil {
		return err
	}
	if _, err := m.MemoryStrategy(); err != nil {
		return err
	}
	if _, err := m.Policy(); err != nil {
		return err
	}
	if m.Network.Nodes < 0 {
		return fmt.Errorf("network.nodes must not be negative, got %d", m.Network.Nodes)
	}
	return nil
}

// MemoryStrategy returns the configured strategy, falling back to the
// ISA's default when none is set.
func (m *Manifest) MemoryStrategy() (intcode.MemoryStrategy, error) {
	if m.Program.Memory == "" {
		isa, err := intcode.ISAByName(m.Program.ISA)
		if err != nil {
			return 0, err
		}
		return isa.Memory, nil
	}
	return intcode.ParseMemoryStrategy(m.Program.Memory)
}

// Policy returns the configured collect policy.
func (m *Manifest) Policy() (intcode.Policy, error) {
	return intcode.ParsePolicy(m.Run.Policy)
}

// MachineOptions translates the program and run sections into machine
// options.
func (m *Manifest) MachineOptions() ([]intcode.Option, error) {
	isa, err := intcode.ISAByName(m.Program.ISA)
	if err != nil {
		return nil, err
	}
	mem, err := m.MemoryStrategy()
	if err != nil {
		return nil, err
	}
	return []intcode.Option{
		intcode.WithISA(isa),
		intcode.WithMemory(mem),
		intcode.WithTrace(m.Run.Trace),
	}, nil
}

// ProgramPath returns the program path resolved against the manifest
// directory.
func (m *Manifest) ProgramPath() string {
	if m.Program.Path == "" || filepath.IsAbs(m.Program.Path) {
		return m.Program.Path
	}
	return filepath.Join(m.Dir, m.Program.Path)
}

// LoadProgram reads and parses the configured program file.
func (m *Manifest) LoadProgram() ([]int64, error) {
	path := m.ProgramPath()
	if path == "" {
		return nil, fmt.Errorf("no program path configured")
	}
	return ReadProgram(path)
}

// NewMachine loads the program and queues the configured input.
func (m *Manifest) NewMachine() (*intcode.Machine, error) {
	program, err := m.LoadProgram()
	if err != nil {
		return nil, err
	}
	opts, err := m.MachineOptions()
	if err != nil {
		return nil, err
	}
	machine := intcode.New(program, m.Program.Input, opts...)
	machine.FeedText(m.Program.Text)
	return machine, nil
}

// NetworkOptions translates the network section.
func (m *Manifest) NetworkOptions() []network.NetworkOption {
	return []network.NetworkOption{
		network.WithIdleValue(m.Network.IdleValue),
		network.WithNATAddress(m.Network.NATAddress),
	}
}

// ReadProgram reads and parses a program file.
func ReadProgram(path string) ([]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	program, err := intcode.ParseProgram(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return program, nil
}
