package grpc

import (
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/jehnsen/coop-lending/pkg/auth"
	"github.com/jehnsen/coop-lending/pkg/tlsutil"
)

var readers = []string{auth.RoleLoanOfficer, auth.RoleApprover, auth.RoleCashier, auth.RoleAuditor}

// MethodRoles lists the roles admitted to each method. Admins pass every
// check; RunPenaltySweep is admin-only.
var MethodRoles = map[string][]string{
	FullMethod("ApplyLoan"):        {auth.RoleLoanOfficer},
	FullMethod("ApproveLoan"):      {auth.RoleApprover},
	FullMethod("RejectLoan"):       {auth.RoleApprover},
	FullMethod("DisburseLoan"):     {auth.RoleApprover, auth.RoleCashier},
	FullMethod("RecordPayment"):    {auth.RoleCashier},
	FullMethod("ReversePayment"):   {auth.RoleApprover},
	FullMethod("ComputePenalties"): {auth.RoleLoanOfficer, auth.RoleApprover},
	FullMethod("WaivePenalty"):     {auth.RoleApprover},
	FullMethod("RunPenaltySweep"):  {},
	FullMethod("GetLoan"):          readers,
	FullMethod("QuoteLoan"):        readers,
	FullMethod("ListPayments"):     readers,
	FullMethod("ListPenalties"):    readers,
}

// ServerOptions configures transport security and reflection.
type ServerOptions struct {
	TLS        tlsutil.ServerConfig
	Reflection bool
}

// Server wraps a gRPC server with the lending handler registered.
type Server struct {
	gs     *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// NewServer creates and configures the gRPC server.
func NewServer(handler LendingServiceServer, logger *slog.Logger, jwtService *auth.JWTService, opts ServerOptions) (*Server, error) {
	authInterceptor := auth.UnaryAuthInterceptor(jwtService, []string{
		"/grpc.health.v1.Health/Check",
		"/grpc.health.v1.Health/Watch",
	})

	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(authInterceptor, auth.RequireRole(MethodRoles)),
	}

	if opts.TLS.Enabled() {
		creds, err := tlsutil.ServerCredentials(opts.TLS)
		if err != nil {
			return nil, fmt.Errorf("grpc tls: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
		logger.Info("gRPC TLS enabled", "cert", opts.TLS.CertFile, "mtls", opts.TLS.ClientCAFile != "")
	} else {
		logger.Info("gRPC TLS not configured, running without TLS")
	}

	gs := grpc.NewServer(serverOpts...)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	if opts.Reflection {
		reflection.Register(gs)
	}

	RegisterLendingServiceServer(gs, handler)

	return &Server{gs: gs, health: healthSrv, logger: logger}, nil
}

// Serve listens on addr and blocks until the server stops.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	s.logger.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.gs.Serve(lis)
}

// GracefulStop reports NOT_SERVING, then drains in-flight calls.
func (s *Server) GracefulStop() {
	s.logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	s.gs.GracefulStop()
}
