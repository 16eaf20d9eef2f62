package grpcacc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/sas/accumulator"
)

// Client is an accumulator.Service backed by a remote sas-accumulatord.
type Client struct {
	cc   *grpc.ClientConn
	stub AccumulatorClient

	// Timeout bounds each RPC when non-zero.
	Timeout time.Duration
}

var _ accumulator.Service = (*Client)(nil)

// Connect creates a client for target. The connection is established lazily
// on the first RPC. maxMsgBytes, when non-zero, caps both directions.
func Connect(target string, maxMsgBytes int) (*Client, error) {
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if maxMsgBytes > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMsgBytes),
			grpc.MaxCallSendMsgSize(maxMsgBytes),
		))
	}
	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an existing connection. Close closes cc.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, stub: NewAccumulatorClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

type rpc func(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)

// call sends one frame and returns the reply frame, with transport errors
// mapped back onto accumulator sentinels.
func (c *Client) call(ctx context.Context, method func(AccumulatorClient) rpc, frame []byte) ([]byte, error) {
	if c == nil || c.stub == nil {
		return nil, accumulator.ErrUnavailable
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	reply, err := method(c.stub)(ctx, wrapperspb.Bytes(frame))
	if err != nil {
		return nil, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) Prove(ctx context.Context, req accumulator.ProofRequest) (*accumulator.ProofResponse, error) {
	b, err := c.call(ctx, func(s AccumulatorClient) rpc { return s.Prove }, encodeProofRequest(req))
	if err != nil {
		return nil, err
	}
	return decodeProofResponse(b)
}

func (c *Client) Apply(ctx context.Context, t accumulator.Transition) (*accumulator.Receipt, error) {
	b, err := c.call(ctx, func(s AccumulatorClient) rpc { return s.Apply }, encodeTransition(t))
	if err != nil {
		return nil, err
	}
	return decodeReceipt(b)
}

func (c *Client) Leaf(ctx context.Context, address [32]byte) (*accumulator.Leaf, error) {
	b, err := c.call(ctx, func(s AccumulatorClient) rpc { return s.Leaf }, address[:])
	if err != nil {
		return nil, err
	}
	return decodeLeaf(b)
}
