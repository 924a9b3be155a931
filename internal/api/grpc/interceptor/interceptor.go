// Package interceptor holds the server interceptors of the gRPC health
// endpoint.
package interceptor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"temple-services-backend/internal/logger"
)

// Unary logs every call and turns a handler panic into codes.Internal.
func Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		start := time.Now()
		defer func() {
			if p := recover(); p != nil {
				err = panicked(info.FullMethod, p)
			}
			logCall(info.FullMethod, start, err)
		}()
		return handler(ctx, req)
	}
}

// Stream is the streaming counterpart of Unary.
func Stream() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		start := time.Now()
		defer func() {
			if p := recover(); p != nil {
				err = panicked(info.FullMethod, p)
			}
			logCall(info.FullMethod, start, err)
		}()
		return handler(srv, ss)
	}
}

func panicked(method string, p any) error {
	logger.Error("gRPC handler panicked", "method", method, "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
	return status.Error(codes.Internal, "internal error")
}

func logCall(method string, start time.Time, err error) {
	code := status.Code(err)
	args := []any{"method", method, "code", code.String(), "duration", time.Since(start)}
	if code == codes.Internal || code == codes.Unknown {
		logger.Warn("gRPC call failed", append(args, "error", err)...)
		return
	}
	logger.Debug("gRPC call", args...)
}
