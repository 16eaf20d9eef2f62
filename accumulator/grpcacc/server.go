package grpcacc

import (
	"context"
	"path"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/sas/accumulator"
	"xdao.co/sas/metrics"
)

// Server exposes an accumulator.Service over the accumulator gRPC service.
type Server struct {
	UnimplementedAccumulatorServer
	Service accumulator.Service
	Log     zerolog.Logger
}

func (s *Server) Prove(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Service == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing accumulator")
	}
	req, err := decodeProofRequest(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	resp, err := s.Service.Prove(ctx, req)
	if err != nil {
		s.Log.Debug().Err(err).Str("rpc", "Prove").Msg("rejected")
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(encodeProofResponse(resp)), nil
}

func (s *Server) Apply(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Service == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing accumulator")
	}
	t, err := decodeTransition(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	rc, err := s.Service.Apply(ctx, t)
	if err != nil {
		s.Log.Debug().Err(err).Str("rpc", "Apply").Msg("rejected")
		return nil, mapErr(err)
	}
	s.Log.Debug().
		Uint16("root_index", rc.RootIndex).
		Int("outputs", len(rc.LeafIndices)).
		Msg("transition applied")
	return wrapperspb.Bytes(encodeReceipt(rc)), nil
}

func (s *Server) Leaf(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Service == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing accumulator")
	}
	addr, err := decodeAddress(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	l, err := s.Service.Leaf(ctx, addr)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(encodeLeaf(l)), nil
}

// MetricsInterceptor counts served RPCs by method and status code.
func MetricsInterceptor(m *metrics.RPC) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		m.Observe(path.Base(info.FullMethod), status.Code(err).String())
		return resp, err
	}
}
