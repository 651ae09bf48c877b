package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"ledger-service/internal/consumers"
	"ledger-service/internal/ledger"
	"ledger-service/internal/services"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server exposes the ledger over gRPC. Messages are google.protobuf.Struct
// values carrying the same JSON shapes the HTTP API uses.
type Server struct {
	Ledger      *ledger.Processor
	Wallets     *services.WalletService
	Withdrawals *services.WithdrawalService
	Logger      *zap.Logger
}

// NewGRPCServer registers s on a new grpc.Server with request logging.
func NewGRPCServer(s *Server, opts ...grpc.ServerOption) *grpc.Server {
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(loggingInterceptor(s.Logger)))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&ServiceDesc, s)
	return srv
}

// StartGRPCServer listens on port and serves until the listener fails.
func StartGRPCServer(port string, s *Server) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.Logger.Info("gRPC server listening", zap.String("port", port))
	return NewGRPCServer(s).Serve(lis)
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc request",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)),
		)
		return resp, err
	}
}

func (s *Server) Process(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var dto consumers.MutationDTO
	if err := decode(in, &dto); err != nil {
		return nil, err
	}
	req, err := dto.ToRequest()
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := s.Ledger.Process(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]interface{}{
		"balance": res.Balance,
		"entry":   res.Entry,
		"entries": res.Entries,
		"wallet":  services.NewBalance(res.Wallet),
	})
}

type walletRequest struct {
	UserId int `json:"userId"`
}

func (s *Server) GetWallet(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req walletRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	balance, err := s.Wallets.GetBalance(ctx, req.UserId)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(balance)
}

func (s *Server) ListEntries(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req services.UserTransactionDTO
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	page, err := s.Wallets.GetUserTransactions(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(page)
}

type withdrawalDecision struct {
	EntryId int    `json:"entryId"`
	Reason  string `json:"reason"`
}

func (s *Server) ApproveWithdrawal(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req withdrawalDecision
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	entry, err := s.Withdrawals.ApproveWithdrawal(ctx, req.EntryId)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]interface{}{"entry": entry})
}

func (s *Server) RejectWithdrawal(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req withdrawalDecision
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	res, err := s.Withdrawals.RejectWithdrawal(ctx, req.EntryId, req.Reason)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]interface{}{
		"refund":  res.Entry,
		"balance": res.Balance,
		"wallet":  services.NewBalance(res.Wallet),
	})
}

// decode maps a Struct onto a JSON tagged Go value.
func decode(in *structpb.Struct, out interface{}) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	return nil
}

func encode(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

var statusCodes = []struct {
	err  error
	code codes.Code
}{
	{ledger.ErrWalletNotFound, codes.NotFound},
	{ledger.ErrEntryNotFound, codes.NotFound},
	{ledger.ErrInsufficientBalance, codes.FailedPrecondition},
	{ledger.ErrInsufficientWithdrawable, codes.FailedPrecondition},
	{ledger.ErrInvalidStateTransition, codes.FailedPrecondition},
	{ledger.ErrInvalidCashType, codes.InvalidArgument},
	{ledger.ErrUnsupportedCategory, codes.InvalidArgument},
	{ledger.ErrInvalidAmount, codes.InvalidArgument},
	{ledger.ErrMissingCounterparty, codes.InvalidArgument},
	{services.ErrInvalidRequest, codes.InvalidArgument},
	{ledger.ErrDuplicateRequest, codes.AlreadyExists},
}

func toStatus(err error) error {
	for _, s := range statusCodes {
		if errors.Is(err, s.err) {
			return status.Error(s.code, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}
