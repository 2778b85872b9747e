package grpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const serviceTokenHeader = "x-service-token"

// tokenGuard admits calls whose x-service-token metadata matches the
// configured token.
type tokenGuard struct {
	expected []byte
}

func newTokenGuard(token string) (*tokenGuard, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("service auth token required")
	}
	return &tokenGuard{expected: []byte(token)}, nil
}

func (g *tokenGuard) admit(ctx context.Context) error {
	var presented string
	if values := metadata.ValueFromIncomingContext(ctx, serviceTokenHeader); len(values) > 0 {
		presented = strings.TrimSpace(values[0])
	}
	switch {
	case presented == "":
		return status.Error(codes.Unauthenticated, "missing_service_token")
	case subtle.ConstantTimeCompare([]byte(presented), g.expected) != 1:
		return status.Error(codes.PermissionDenied, "invalid_service_token")
	}
	return nil
}

func NewServiceAuthUnaryInterceptor(expectedToken string) (grpc.UnaryServerInterceptor, error) {
	guard, err := newTokenGuard(expectedToken)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, next grpc.UnaryHandler) (interface{}, error) {
		if err := guard.admit(ctx); err != nil {
			return nil, err
		}
		return next(ctx, req)
	}, nil
}

// NewServiceAuthStreamInterceptor covers health Watch and reflection.
func NewServiceAuthStreamInterceptor(expectedToken string) (grpc.StreamServerInterceptor, error) {
	guard, err := newTokenGuard(expectedToken)
	if err != nil {
		return nil, err
	}
	return func(srv interface{}, stream grpc.ServerStream, _ *grpc.StreamServerInfo, next grpc.StreamHandler) error {
		if err := guard.admit(stream.Context()); err != nil {
			return err
		}
		return next(srv, stream)
	}, nil
}
