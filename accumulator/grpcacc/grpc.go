// Package grpcacc serves and consumes an accumulator.Service over gRPC.
//
// Messages travel as protobuf BytesValue frames holding a compact
// fixed-width encoding, so the package needs no protoc toolchain.
package grpcacc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "xdao.sas.accumulator.v1.Accumulator"

// AccumulatorServer is the server API for the accumulator gRPC service.
type AccumulatorServer interface {
	Prove(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Apply(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Leaf(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedAccumulatorServer can be embedded for forward compatibility.
type UnimplementedAccumulatorServer struct{}

func (UnimplementedAccumulatorServer) Prove(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Prove not implemented")
}
func (UnimplementedAccumulatorServer) Apply(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Apply not implemented")
}
func (UnimplementedAccumulatorServer) Leaf(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Leaf not implemented")
}

func RegisterAccumulatorServer(s grpc.ServiceRegistrar, srv AccumulatorServer) {
	s.RegisterService(&Accumulator_ServiceDesc, srv)
}

// AccumulatorClient is the client API for the accumulator gRPC service.
type AccumulatorClient interface {
	Prove(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Apply(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Leaf(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type accumulatorClient struct{ cc grpc.ClientConnInterface }

func NewAccumulatorClient(cc grpc.ClientConnInterface) AccumulatorClient {
	return &accumulatorClient{cc: cc}
}

func (c *accumulatorClient) invoke(ctx context.Context, method string, in *wrapperspb.BytesValue, opts []grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accumulatorClient) Prove(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "Prove", in, opts)
}

func (c *accumulatorClient) Apply(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "Apply", in, opts)
}

func (c *accumulatorClient) Leaf(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "Leaf", in, opts)
}

type unaryMethod func(AccumulatorServer, context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)

func handler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(wrapperspb.BytesValue)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AccumulatorServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + name}
			h := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(AccumulatorServer), ctx, req.(*wrapperspb.BytesValue))
			}
			return interceptor(ctx, in, info, h)
		},
	}
}

// Accumulator_ServiceDesc is the grpc.ServiceDesc for the accumulator service.
var Accumulator_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AccumulatorServer)(nil),
	Methods: []grpc.MethodDesc{
		handler("Prove", AccumulatorServer.Prove),
		handler("Apply", AccumulatorServer.Apply),
		handler("Leaf", AccumulatorServer.Leaf),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "accumulator.proto",
}
