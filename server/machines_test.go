package server

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/chazu/intcode/pkg/intcode"
)

func TestMachineStoreLifecycle(t *testing.T) {
	metrics := NewMetrics()
	s := NewMachineStore(metrics)

	a := s.Add(intcode.New([]int64{99}, nil), "a")
	b := s.Add(intcode.New([]int64{99}, nil), "b")
	require.NotEqual(t, a, b)
	require.Equal(t, 2, s.Len())
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.machines))

	m, ok := s.Get(a)
	require.True(t, ok)
	require.Equal(t, intcode.StateRunning, m.State())

	info, ok := s.Info(b)
	require.True(t, ok)
	require.Equal(t, "b", info.Label)

	require.True(t, s.Remove(a))
	require.False(t, s.Remove(a))
	_, ok = s.Get(a)
	require.False(t, ok)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.machines))
}

func TestMachineStoreSweep(t *testing.T) {
	metrics := NewMetrics()
	s := NewMachineStore(metrics)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	stale := s.Add(intcode.New([]int64{99}, nil), "")
	now = now.Add(20 * time.Minute)
	fresh := s.Add(intcode.New([]int64{99}, nil), "")
	now = now.Add(15 * time.Minute)

	require.Equal(t, 1, s.Sweep(30*time.Minute))
	_, ok := s.Get(stale)
	require.False(t, ok)
	_, ok = s.Get(fresh)
	require.True(t, ok)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.sweeps))

	// Get refreshed fresh, so nothing else is due.
	now = now.Add(29 * time.Minute)
	require.Equal(t, 0, s.Sweep(30*time.Minute))
}

func TestMachineStoreSweeper(t *testing.T) {
	s := NewMachineStore(nil)
	s.Add(intcode.New([]int64{99}, nil), "")

	stop := s.StartSweeper(time.Millisecond, 0)
	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, time.Millisecond)
	stop()
	stop()
}
