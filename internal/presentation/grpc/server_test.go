package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"github.com/jehnsen/coop-lending/pkg/auth"
)

type testServer struct {
	conn *grpc.ClientConn
	jwt  *auth.JWTService
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Issuer: "coop-backoffice", Expiration: time.Hour})
	require.NoError(t, err)

	h, _ := buildTestHandler()
	srv, err := NewServer(h, testLogger(), jwtSvc, ServerOptions{})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.ServeListener(lis) }()
	t.Cleanup(srv.GracefulStop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testServer{conn: conn, jwt: jwtSvc}
}

func (s *testServer) as(t *testing.T, roles ...string) context.Context {
	t.Helper()
	token, err := s.jwt.GenerateToken("user-001", testTenant, "Maria Santos", roles)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func TestServer_RequiresToken(t *testing.T) {
	s := startTestServer(t)

	var reply LoanReply
	err := s.conn.Invoke(context.Background(), FullMethod("ApplyLoan"), applyRequest(), &reply)
	requireGRPCCode(t, err, codes.Unauthenticated)
}

func TestServer_EnforcesRoles(t *testing.T) {
	s := startTestServer(t)

	var reply LoanReply
	err := s.conn.Invoke(s.as(t, auth.RoleCashier), FullMethod("ApplyLoan"), applyRequest(), &reply)
	requireGRPCCode(t, err, codes.PermissionDenied)

	err = s.conn.Invoke(s.as(t, auth.RoleLoanOfficer), FullMethod("ApplyLoan"), applyRequest(), &reply)
	require.NoError(t, err)
	require.NotNil(t, reply.Loan)
	assert.Equal(t, "pending", reply.Loan.Status)
	assert.Equal(t, "10000.00", reply.Loan.Principal)

	var got LoanReply
	err = s.conn.Invoke(s.as(t, auth.RoleAuditor), FullMethod("GetLoan"), &LoanLookup{LoanID: reply.Loan.ID}, &got)
	require.NoError(t, err)
	assert.Equal(t, reply.Loan.LoanNumber, got.Loan.LoanNumber)

	err = s.conn.Invoke(s.as(t, auth.RoleAuditor), FullMethod("ApproveLoan"), &ApproveLoanRequest{LoanID: reply.Loan.ID}, &got)
	requireGRPCCode(t, err, codes.PermissionDenied)
}

func TestServer_SweepIsAdminOnly(t *testing.T) {
	s := startTestServer(t)

	var reply PenaltySweepReply
	err := s.conn.Invoke(s.as(t, auth.RoleApprover), FullMethod("RunPenaltySweep"), &PenaltySweepRequest{}, &reply)
	requireGRPCCode(t, err, codes.PermissionDenied)

	err = s.conn.Invoke(s.as(t, auth.RoleAdmin), FullMethod("RunPenaltySweep"), &PenaltySweepRequest{}, &reply)
	require.NoError(t, err)
	assert.Zero(t, reply.LoansScanned)
}

func TestServer_HealthSkipsAuth(t *testing.T) {
	s := startTestServer(t)

	resp, err := healthpb.NewHealthClient(s.conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: serviceName},
		grpc.CallContentSubtype("proto"))
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestMethodRoles_CoverEveryMethod(t *testing.T) {
	for _, m := range lendingServiceDesc.Methods {
		_, ok := MethodRoles[FullMethod(m.MethodName)]
		assert.True(t, ok, "%s has no role entry", m.MethodName)
	}
}
