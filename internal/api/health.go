package api

import (
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// EngineService is the health service name reported for the aggregation engine.
const EngineService = "perfspectra.Engine"

// HealthServer exposes the standard gRPC health checking protocol.
type HealthServer struct {
	log    logrus.FieldLogger
	grpc   *grpc.Server
	health *health.Server
}

// NewHealthServer creates a health server reporting NOT_SERVING until SetServing(true).
func NewHealthServer(log logrus.FieldLogger) *HealthServer {
	h := &HealthServer{
		log:    log.WithField("component", "grpc_health"),
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.grpc, h.health)
	reflection.Register(h.grpc)
	h.SetServing(false)
	return h
}

// SetServing updates the status of the engine service and of the server as a whole.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(EngineService, status)
	h.log.WithField("status", status.String()).Debug("Health status changed")
}

// Serve accepts connections on lis until Stop is called.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.log.WithField("addr", lis.Addr().String()).Info("gRPC health server starting")
	return h.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and stops the server.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
