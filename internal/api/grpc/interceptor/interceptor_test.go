package interceptor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnary(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	t.Run("Passes response through", func(t *testing.T) {
		resp, err := Unary()(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})

	t.Run("Keeps handler status", func(t *testing.T) {
		_, err := Unary()(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return nil, status.Error(codes.NotFound, "unknown service")
		})
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("Recovers panic", func(t *testing.T) {
		_, err := Unary()(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
			panic("boom")
		})
		assert.Equal(t, codes.Internal, status.Code(err))
	})
}

func TestStream(t *testing.T) {
	info := &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch", IsServerStream: true}

	err := Stream()(nil, nil, info, func(srv interface{}, ss grpc.ServerStream) error {
		return errors.New("stream closed")
	})
	assert.EqualError(t, err, "stream closed")

	err = Stream()(nil, nil, info, func(srv interface{}, ss grpc.ServerStream) error {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}
