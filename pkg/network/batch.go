package network

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/intcode/pkg/intcode"
)

// EvaluateAll runs one chain per phase set concurrently, each seeded with
// signal, and returns each chain's final signal, in phaseSets order. limit bounds the number of
// chains running at once; limit <= 0 means no bound. The first failure
// cancels the remaining work and is returned.
func EvaluateAll(ctx context.Context, program []int64, phaseSets [][]int64, signal int64, feedback bool, limit int, opts ...intcode.Option) ([]int64, error) {
	template := intcode.New(program, nil, opts...)
	signals := make([]int64, len(phaseSets))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, phases := range phaseSets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chain := NewChainFrom(template, phases)
			run := chain.RunLinear
			if feedback {
				run = chain.RunFeedback
			}
			out, err := run(signal)
			if err != nil {
				return fmt.Errorf("phases %v: %w", phases, err)
			}
			signals[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return signals, nil
}

// Best returns the largest signal and its index, or -1 for an empty slice.
func Best(signals []int64) (int64, int) {
	best, at := int64(0), -1
	for i, s := range signals {
		if at < 0 || s > best {
			best, at = s, i
		}
	}
	return best, at
}
