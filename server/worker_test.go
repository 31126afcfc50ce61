package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/chazu/intcode/pkg/intcode"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// ---------------------------------------------------------------------------
// Worker
// ---------------------------------------------------------------------------

func TestWorkerDo(t *testing.T) {
	w := NewWorker(NewMachineStore(nil))
	defer w.Stop()

	id := w.Machines().Add(intcode.New([]int64{104, 7, 99}, nil), "")
	v, err := w.Do(context.Background(), func(ms *MachineStore) any {
		m, _ := ms.Get(id)
		stop, _ := m.Run()
		return stop
	})
	require.NoError(t, err)
	require.Equal(t, intcode.Stop{Kind: intcode.StopOutput, Value: 7}, v)
}

func TestWorkerRecoversPanic(t *testing.T) {
	w := NewWorker(NewMachineStore(nil))
	defer w.Stop()

	_, err := w.Do(context.Background(), func(*MachineStore) any {
		panic("boom")
	})
	require.ErrorContains(t, err, "boom")

	// The worker keeps serving after a panic.
	v, err := w.Do(context.Background(), func(ms *MachineStore) any { return ms.Len() })
	require.NoError(t, err)
	require.Equal(t, 0, v)
}

func TestWorkerStopped(t *testing.T) {
	w := NewWorker(NewMachineStore(nil))
	w.Stop()
	w.Stop()

	_, err := w.Do(context.Background(), func(*MachineStore) any { return nil })
	require.ErrorIs(t, err, ErrWorkerStopped)
}

func TestWorkerCancelled(t *testing.T) {
	w := NewWorker(NewMachineStore(nil))
	defer w.Stop()

	// Occupy the worker so the next request has to wait in the queue.
	release := make(chan struct{})
	started := make(chan struct{})
	go w.Do(context.Background(), func(*MachineStore) any {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Do(ctx, func(*MachineStore) any { return nil })
	close(release)
	require.ErrorIs(t, err, context.Canceled)
}
