package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/intcode/pkg/intcode"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[program]
path = "amp.ic"
input = [1, 2]
text = "north\n"
isa = "v5"
memory = "dense"

[run]
max-steps = 1000
policy = "until-blocked"
trace = true

[network]
phases = [9, 8, 7, 6, 5]
feedback = true
nodes = 3
idle-value = -7
nat-address = 9

[server]
addr = "127.0.0.1:9000"
sweep-interval = "10s"
ttl = "1h"
snapshot-db = "snap.db"

[log]
verbosity = 2
path = "intcode.log"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Program.Path != "amp.ic" || m.ProgramPath() != filepath.Join(m.Dir, "amp.ic") {
		t.Errorf("program path = %q (%q)", m.Program.Path, m.ProgramPath())
	}
	if len(m.Program.Input) != 2 || m.Program.Text != "north\n" {
		t.Errorf("program input = %v text %q", m.Program.Input, m.Program.Text)
	}
	if s, err := m.MemoryStrategy(); err != nil || s != intcode.MemoryDense {
		t.Errorf("memory = %v, %v; want dense", s, err)
	}
	if p, err := m.Policy(); err != nil || p != intcode.CollectUntilBlocked {
		t.Errorf("policy = %v, %v; want until-blocked", p, err)
	}
	if m.Run.MaxSteps != 1000 || !m.Run.Trace {
		t.Errorf("run = %+v", m.Run)
	}
	if !m.Network.Feedback || m.Network.Nodes != 3 || m.Network.IdleValue != -7 || m.Network.NATAddress != 9 {
		t.Errorf("network = %+v", m.Network)
	}
	if len(m.Network.Phases) != 5 {
		t.Errorf("phases = %v", m.Network.Phases)
	}
	if m.Server.Addr != "127.0.0.1:9000" || m.Server.SweepInterval.Duration != 10*time.Second ||
		m.Server.TTL.Duration != time.Hour || m.Server.SnapshotDB != "snap.db" {
		t.Errorf("server = %+v", m.Server)
	}
	if m.Log.Verbosity != 2 || m.Log.Path != "intcode.log" {
		t.Errorf("log = %+v", m.Log)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[program]
path = "day9.ic"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Program.ISA != "v9" {
		t.Errorf("isa = %q, want v9", m.Program.ISA)
	}
	if s, _ := m.MemoryStrategy(); s != intcode.MemorySparse {
		t.Errorf("memory = %v, want sparse", s)
	}
	if m.Run.Policy != "strict" {
		t.Errorf("policy = %q, want strict", m.Run.Policy)
	}
	if m.Server.Addr != ":4567" || m.Server.TTL.Duration != 30*time.Minute || m.Server.SweepInterval.Duration != 5*time.Minute {
		t.Errorf("server defaults = %+v", m.Server)
	}
	if m.Network.IdleValue != -1 || m.Network.NATAddress != 255 || m.Network.Nodes != 50 {
		t.Errorf("network defaults = %+v", m.Network)
	}
}

func TestLoadManifestInvalid(t *testing.T) {
	tests := map[string]string{
		"isa":    "[program]\nisa = \"v42\"\n",
		"memory": "[program]\nmemory = \"infinite\"\n",
		"policy": "[run]\npolicy = \"lenient\"\n",
		"ttl":    "[server]\nttl = \"soon\"\n",
		"nodes":  "[network]\nnodes = -1\n",
		"syntax": "[program\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, content)
			if _, err := Load(dir); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, "[program]\npath = \"found.ic\"\n")

	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Program.Path != "found.ic" {
		t.Errorf("program path = %q, want found.ic", m.Program.Path)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no intcode.toml exists")
	}
}

func TestNewMachine(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "echo.ic"), []byte("3,0,4,0,3,0,4,0,99\n"), 0644); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, "[program]\npath = \"echo.ic\"\ninput = [7]\ntext = \"A\"\n")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	vm, err := m.NewMachine()
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	out, _, err := intcode.Collect(vm, intcode.CollectStrict)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(out) != 2 || out[0] != 7 || out[1] != 'A' {
		t.Errorf("outputs = %v, want [7 65]", out)
	}
}

func TestReadProgramErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.ic")
	if err := os.WriteFile(path, []byte("1,2,x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadProgram(path); err == nil {
		t.Error("expected parse error")
	}
	if _, err := ReadProgram(filepath.Join(dir, "missing.ic")); err == nil {
		t.Error("expected read error")
	}
	if _, err := (&Manifest{}).LoadProgram(); err == nil {
		t.Error("expected error for missing program path")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := Default()
	m.Program.Path = "prog.ic"
	m.Server.TTL = Duration{2 * time.Hour}
	if err := m.Write(filepath.Join(dir, FileName)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Program.Path != "prog.ic" || loaded.Server.TTL.Duration != 2*time.Hour {
		t.Errorf("round trip = %+v / %+v", loaded.Program, loaded.Server)
	}
}
