package grpc

// proto.go describes coop.lending.v1.LendingService by hand. Payloads travel
// with the JSON codec registered in json_codec.go, so no generated stubs are
// needed.

import (
	"context"

	grpclib "google.golang.org/grpc"
)

const serviceName = "coop.lending.v1.LendingService"

// FullMethod returns the gRPC method path for name, as seen by interceptors.
func FullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

// LendingServiceServer is the server API for LendingService.
type LendingServiceServer interface {
	ApplyLoan(context.Context, *ApplyLoanRequest) (*LoanReply, error)
	ApproveLoan(context.Context, *ApproveLoanRequest) (*LoanReply, error)
	RejectLoan(context.Context, *RejectLoanRequest) (*LoanReply, error)
	DisburseLoan(context.Context, *DisburseLoanRequest) (*LoanReply, error)
	GetLoan(context.Context, *LoanLookup) (*LoanReply, error)
	QuoteLoan(context.Context, *QuoteLoanRequest) (*QuoteReply, error)
	RecordPayment(context.Context, *RecordPaymentRequest) (*PaymentReply, error)
	ReversePayment(context.Context, *ReversePaymentRequest) (*PaymentReply, error)
	ListPayments(context.Context, *LoanLookup) (*PaymentsReply, error)
	ComputePenalties(context.Context, *ComputePenaltiesRequest) (*PenaltiesReply, error)
	WaivePenalty(context.Context, *WaivePenaltyRequest) (*PenaltyReply, error)
	ListPenalties(context.Context, *LoanLookup) (*PenaltiesReply, error)
	RunPenaltySweep(context.Context, *PenaltySweepRequest) (*PenaltySweepReply, error)
}

// RegisterLendingServiceServer registers srv with the gRPC server.
func RegisterLendingServiceServer(s grpclib.ServiceRegistrar, srv LendingServiceServer) {
	s.RegisterService(&lendingServiceDesc, srv)
}

var lendingServiceDesc = grpclib.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*LendingServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		unary("ApplyLoan", LendingServiceServer.ApplyLoan),
		unary("ApproveLoan", LendingServiceServer.ApproveLoan),
		unary("RejectLoan", LendingServiceServer.RejectLoan),
		unary("DisburseLoan", LendingServiceServer.DisburseLoan),
		unary("GetLoan", LendingServiceServer.GetLoan),
		unary("QuoteLoan", LendingServiceServer.QuoteLoan),
		unary("RecordPayment", LendingServiceServer.RecordPayment),
		unary("ReversePayment", LendingServiceServer.ReversePayment),
		unary("ListPayments", LendingServiceServer.ListPayments),
		unary("ComputePenalties", LendingServiceServer.ComputePenalties),
		unary("WaivePenalty", LendingServiceServer.WaivePenalty),
		unary("ListPenalties", LendingServiceServer.ListPenalties),
		unary("RunPenaltySweep", LendingServiceServer.RunPenaltySweep),
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "coop/lending/v1/lending.proto",
}

// unary builds the method descriptor that decodes Req, runs the interceptor
// chain and dispatches to call.
func unary[Req, Resp any](name string, call func(LendingServiceServer, context.Context, *Req) (*Resp, error)) grpclib.MethodDesc {
	return grpclib.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(LendingServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpclib.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
