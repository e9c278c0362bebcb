package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It logs the procedure name, request and user IDs, duration, and any error codes/messages.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", procedure,
				"request_id", GetRequestID(ctx),
				"user_id", GetUserID(ctx), // empty if pre-auth
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) && connectErr.Code() != connect.CodeInternal && connectErr.Code() != connect.CodeUnavailable {
					logger.Warn("RPC error", append(attrs,
						"code", connectErr.Code(),
						"error", connectErr.Message(),
					)...)
				} else {
					logger.Error("RPC error", append(attrs, "error", err)...)
				}
			} else {
				logger.Info("RPC ok", attrs...)
			}

			return resp, err
		}
	}
}
