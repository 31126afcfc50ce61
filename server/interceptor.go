package server

import (
	"context"
	"errors"

	"connectrpc.com/connect"
)

// newObserveInterceptor counts every request by procedure and result code
// and logs failures.
func newObserveInterceptor(metrics *Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			procedure := req.Spec().Procedure
			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
				var cerr *connect.Error
				if !errors.As(err, &cerr) || cerr.Code() == connect.CodeInternal {
					log.Warningf("%s failed: %v", procedure, err)
				} else {
					log.Debugf("%s: %v", procedure, err)
				}
			}
			metrics.request(procedure, code)
			return resp, err
		}
	}
}
