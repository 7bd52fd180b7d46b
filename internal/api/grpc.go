package api

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the gRPC health service name reported for the bars API.
const ServiceName = "tickbars.HistoricalData"

// healthService publishes grpc.health.v1 status for the whole server and
// for ServiceName.
type healthService struct {
	srv *health.Server
}

func registerHealth(gs *grpc.Server) *healthService {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, h)
	reflection.Register(gs)
	return &healthService{srv: h}
}

// shutdown flips every service to NOT_SERVING and ignores later updates.
func (h *healthService) shutdown() {
	h.srv.Shutdown()
}
