package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// BackendService is the health entry tracking the clinical backend.
const BackendService = "healthdesk.backend"

// NewServer builds the gRPC server with the standard health service. The
// backend entry starts NOT_SERVING until the first successful probe. A
// non-empty serviceToken guards every call.
func NewServer(serviceToken string) (*grpc.Server, *health.Server, error) {
	var opts []grpc.ServerOption
	if serviceToken != "" {
		unary, err := NewServiceAuthUnaryInterceptor(serviceToken)
		if err != nil {
			return nil, nil, err
		}
		stream, err := NewServiceAuthStreamInterceptor(serviceToken)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, grpc.UnaryInterceptor(unary), grpc.StreamInterceptor(stream))
	}

	server := grpc.NewServer(opts...)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)
	healthServer.SetServingStatus(BackendService, healthpb.HealthCheckResponse_NOT_SERVING)
	return server, healthServer, nil
}

func SetBackendServing(h *health.Server, up bool) {
	if up {
		h.SetServingStatus(BackendService, healthpb.HealthCheckResponse_SERVING)
		return
	}
	h.SetServingStatus(BackendService, healthpb.HealthCheckResponse_NOT_SERVING)
}
