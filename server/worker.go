package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrWorkerStopped is returned by Do once Stop has been called.
var ErrWorkerStopped = errors.New("machine worker stopped")

type workRequest struct {
	fn   func(*MachineStore) any
	done chan workResult
}

type workResult struct {
	value any
	err   error
}

// Worker runs every machine operation on one goroutine. Machines are not
// safe for concurrent use, so all handlers must go through the worker.
type Worker struct {
	machines *MachineStore
	requests chan workRequest
	quit     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

// NewWorker starts the processing goroutine for machines.
func NewWorker(machines *MachineStore) *Worker {
	w := &Worker{
		machines: machines,
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	defer close(w.exited)
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, turning a panic into an error.
func (w *Worker) execute(fn func(*MachineStore) any) (result workResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Warningf("recovered panic in machine worker: %v", r)
			result.err = fmt.Errorf("%v", r)
		}
	}()
	result.value = fn(w.machines)
	return result
}

// Do submits fn and blocks until it has run, ctx is done, or the worker
// stops. A request abandoned because of ctx may still run later.
func (w *Worker) Do(ctx context.Context, fn func(*MachineStore) any) (any, error) {
	req := workRequest{fn: fn, done: make(chan workResult, 1)}
	select {
	case w.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// Machines returns the store the worker guards.
func (w *Worker) Machines() *MachineStore {
	return w.machines
}

// Stop shuts the worker down and waits for its goroutine to exit. It is safe
// to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
	<-w.exited
}
