package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/chazu/intcode/pkg/intcode"
	"github.com/chazu/intcode/pkg/snapshot"
)

// MachineServiceName is the fully-qualified service name.
const MachineServiceName = "intcode.v1.MachineService"

// Procedure paths of the machine service.
const (
	CreateProcedure  = "/" + MachineServiceName + "/Create"
	FeedProcedure    = "/" + MachineServiceName + "/Feed"
	RunProcedure     = "/" + MachineServiceName + "/Run"
	DrainProcedure   = "/" + MachineServiceName + "/Drain"
	PeekProcedure    = "/" + MachineServiceName + "/Peek"
	PokeProcedure    = "/" + MachineServiceName + "/Poke"
	CloneProcedure   = "/" + MachineServiceName + "/Clone"
	DestroyProcedure = "/" + MachineServiceName + "/Destroy"
	SaveProcedure    = "/" + MachineServiceName + "/Save"
	RestoreProcedure = "/" + MachineServiceName + "/Restore"
)

// MaxPeekCount bounds the number of cells one Peek may return.
const MaxPeekCount = 4096

// MachineService implements the machine procedures. Engine faults and input
// underflow are reported in the response; connect errors are reserved for
// bad requests and missing machines.
type MachineService struct {
	worker    *Worker
	snapshots *snapshot.Store
	metrics   *Metrics
	maxSteps  uint64
}

// NewMachineService creates a MachineService. snapshots and metrics may be
// nil. maxSteps bounds every Run and Drain; 0 means unbounded.
func NewMachineService(worker *Worker, snapshots *snapshot.Store, metrics *Metrics, maxSteps uint64) *MachineService {
	return &MachineService{
		worker:    worker,
		snapshots: snapshots,
		metrics:   metrics,
		maxSteps:  maxSteps,
	}
}

// Create loads a program into a new machine.
func (s *MachineService) Create(
	ctx context.Context,
	req *connect.Request[CreateRequest],
) (*connect.Response[CreateResponse], error) {
	msg := req.Msg
	program := msg.Program
	if len(program) == 0 {
		if msg.ProgramText == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("program or programText is required"))
		}
		parsed, err := intcode.ParseProgram(msg.ProgramText)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		program = parsed
	}
	isa, err := intcode.ISAByName(msg.ISA)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	opts := []intcode.Option{intcode.WithISA(isa)}
	if msg.Memory != "" {
		mem, err := intcode.ParseMemoryStrategy(msg.Memory)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		opts = append(opts, intcode.WithMemory(mem))
	}

	m := intcode.New(program, msg.Input, opts...)
	m.FeedText(msg.Text)

	resp, err := call(ctx, s.worker, func(ms *MachineStore) (*CreateResponse, error) {
		return &CreateResponse{ID: ms.Add(m, msg.Label), ISA: isa.Name}, nil
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("created machine %s (%s, %d cells)", resp.ID, isa.Name, len(program))
	return connect.NewResponse(resp), nil
}

// Feed appends values and text to a machine's input queue.
func (s *MachineService) Feed(
	ctx context.Context,
	req *connect.Request[FeedRequest],
) (*connect.Response[FeedResponse], error) {
	msg := req.Msg
	resp, err := withMachine(ctx, s.worker, msg.ID, func(m *intcode.Machine) (*FeedResponse, error) {
		m.Feed(msg.Values...)
		m.FeedText(msg.Text)
		return &FeedResponse{Pending: m.Pending()}, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Run resumes a machine until its next stop or until the step bound runs
// out.
func (s *MachineService) Run(
	ctx context.Context,
	req *connect.Request[RunRequest],
) (*connect.Response[RunResponse], error) {
	msg := req.Msg
	limit := s.stepLimit(msg.MaxSteps)
	resp, err := withMachine(ctx, s.worker, msg.ID, func(m *intcode.Machine) (*RunResponse, error) {
		start, began := m.Steps(), time.Now()
		stop, runErr := m.RunLimit(limit)
		exhausted := errors.Is(runErr, intcode.ErrStepLimit)
		out := &RunResponse{
			Stop:      stopInfo(stop),
			PC:        m.PC(),
			Steps:     m.Steps() - start,
			Fault:     faultInfo(runErr),
			Exhausted: exhausted,
		}
		s.metrics.stop(out.Stop.Kind, out.Steps, time.Since(began).Seconds())
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Drain collects outputs until the machine halts, faults or starves.
func (s *MachineService) Drain(
	ctx context.Context,
	req *connect.Request[DrainRequest],
) (*connect.Response[DrainResponse], error) {
	msg := req.Msg
	policy, err := intcode.ParsePolicy(msg.Policy)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	limit := s.stepLimit(msg.MaxSteps)
	resp, err := withMachine(ctx, s.worker, msg.ID, func(m *intcode.Machine) (*DrainResponse, error) {
		start, began := m.Steps(), time.Now()
		outputs, stop, drainErr := intcode.CollectLimit(m, policy, limit)
		exhausted := errors.Is(drainErr, intcode.ErrStepLimit)
		if outputs == nil {
			outputs = []int64{}
		}
		out := &DrainResponse{
			Outputs:   outputs,
			Stop:      stopInfo(stop),
			Underflow: isUnderflow(drainErr),
			Fault:     faultInfo(drainErr),
			Exhausted: exhausted,
			Steps:     m.Steps() - start,
		}
		s.metrics.stop(out.Stop.Kind, out.Steps, time.Since(began).Seconds())
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Peek reads Count consecutive cells starting at Addr.
func (s *MachineService) Peek(
	ctx context.Context,
	req *connect.Request[PeekRequest],
) (*connect.Response[PeekResponse], error) {
	msg := req.Msg
	count := msg.Count
	if count == 0 {
		count = 1
	}
	if count < 0 || count > MaxPeekCount {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("count must be between 1 and %d, got %d", MaxPeekCount, msg.Count))
	}
	if msg.Addr > math.MaxUint64-uint64(count-1) {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("addr %d + count %d overflows the address space", msg.Addr, count))
	}
	resp, err := withMachine(ctx, s.worker, msg.ID, func(m *intcode.Machine) (*PeekResponse, error) {
		values := make([]int64, count)
		for i := range values {
			values[i] = m.Peek(msg.Addr + uint64(i))
		}
		return &PeekResponse{Values: values}, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Poke writes one cell.
func (s *MachineService) Poke(
	ctx context.Context,
	req *connect.Request[PokeRequest],
) (*connect.Response[PokeResponse], error) {
	msg := req.Msg
	resp, err := withMachine(ctx, s.worker, msg.ID, func(m *intcode.Machine) (*PokeResponse, error) {
		if err := m.Poke(msg.Addr, msg.Value); err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return &PokeResponse{}, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Clone copies a machine into a new, independent one.
func (s *MachineService) Clone(
	ctx context.Context,
	req *connect.Request[CloneRequest],
) (*connect.Response[CloneResponse], error) {
	msg := req.Msg
	resp, err := call(ctx, s.worker, func(ms *MachineStore) (*CloneResponse, error) {
		m, ok := ms.Get(msg.ID)
		if !ok {
			return nil, notFound(msg.ID)
		}
		return &CloneResponse{ID: ms.Add(m.Clone(), msg.Label)}, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Destroy drops a machine.
func (s *MachineService) Destroy(
	ctx context.Context,
	req *connect.Request[DestroyRequest],
) (*connect.Response[DestroyResponse], error) {
	msg := req.Msg
	resp, err := call(ctx, s.worker, func(ms *MachineStore) (*DestroyResponse, error) {
		if !ms.Remove(msg.ID) {
			return nil, notFound(msg.ID)
		}
		return &DestroyResponse{}, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// Save checkpoints a machine into the snapshot store under Name.
func (s *MachineService) Save(
	ctx context.Context,
	req *connect.Request[SaveRequest],
) (*connect.Response[SaveResponse], error) {
	msg := req.Msg
	if s.snapshots == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("no snapshot store configured"))
	}
	if msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("name is required"))
	}
	img, err := withMachine(ctx, s.worker, msg.ID, func(m *intcode.Machine) (*intcode.Image, error) {
		img := m.Image()
		return &img, nil
	})
	if err != nil {
		return nil, err
	}
	entry, err := s.snapshots.Put(ctx, msg.Name, *img)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&SaveResponse{Name: entry.Name, Digest: entry.Digest, Size: entry.Size}), nil
}

// Restore loads a snapshot into a new machine.
func (s *MachineService) Restore(
	ctx context.Context,
	req *connect.Request[RestoreRequest],
) (*connect.Response[RestoreResponse], error) {
	msg := req.Msg
	if s.snapshots == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("no snapshot store configured"))
	}
	m, err := s.snapshots.Load(ctx, msg.Name)
	if errors.Is(err, snapshot.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	resp, err := call(ctx, s.worker, func(ms *MachineStore) (*RestoreResponse, error) {
		return &RestoreResponse{ID: ms.Add(m, msg.Label), State: m.State().String()}, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

func (s *MachineService) stepLimit(requested uint64) uint64 {
	if s.maxSteps == 0 || (requested != 0 && requested < s.maxSteps) {
		return requested
	}
	return s.maxSteps
}

type outcome[T any] struct {
	value *T
	err   error
}

// call runs fn on the worker goroutine. Errors from fn are returned as they
// are; worker failures become connect errors.
func call[T any](ctx context.Context, w *Worker, fn func(*MachineStore) (*T, error)) (*T, error) {
	v, err := w.Do(ctx, func(ms *MachineStore) any {
		value, err := fn(ms)
		return outcome[T]{value: value, err: err}
	})
	if err != nil {
		return nil, workerError(err)
	}
	res := v.(outcome[T])
	return res.value, res.err
}

// withMachine runs fn on the worker goroutine against the machine id.
func withMachine[T any](ctx context.Context, w *Worker, id string, fn func(*intcode.Machine) (*T, error)) (*T, error) {
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("id is required"))
	}
	return call(ctx, w, func(ms *MachineStore) (*T, error) {
		m, ok := ms.Get(id)
		if !ok {
			return nil, notFound(id)
		}
		return fn(m)
	})
}

func notFound(id string) error {
	return connect.NewError(connect.CodeNotFound, fmt.Errorf("machine %q not found", id))
}

func workerError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, ErrWorkerStopped):
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// NewMachineServiceHandler builds the HTTP handler for every procedure and
// returns the path prefix to mount it on.
func NewMachineServiceHandler(svc *MachineService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithCodec(newCBORCodec()),
		connect.WithInterceptors(newObserveInterceptor(svc.metrics)),
	}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CreateProcedure, connect.NewUnaryHandler(CreateProcedure, svc.Create, opts...))
	mux.Handle(FeedProcedure, connect.NewUnaryHandler(FeedProcedure, svc.Feed, opts...))
	mux.Handle(RunProcedure, connect.NewUnaryHandler(RunProcedure, svc.Run, opts...))
	mux.Handle(DrainProcedure, connect.NewUnaryHandler(DrainProcedure, svc.Drain, opts...))
	mux.Handle(PeekProcedure, connect.NewUnaryHandler(PeekProcedure, svc.Peek, opts...))
	mux.Handle(PokeProcedure, connect.NewUnaryHandler(PokeProcedure, svc.Poke, opts...))
	mux.Handle(CloneProcedure, connect.NewUnaryHandler(CloneProcedure, svc.Clone, opts...))
	mux.Handle(DestroyProcedure, connect.NewUnaryHandler(DestroyProcedure, svc.Destroy, opts...))
	mux.Handle(SaveProcedure, connect.NewUnaryHandler(SaveProcedure, svc.Save, opts...))
	mux.Handle(RestoreProcedure, connect.NewUnaryHandler(RestoreProcedure, svc.Restore, opts...))
	return "/" + MachineServiceName + "/", mux
}
