package grpcacc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/zeebo/blake3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/sas/accumulator"
	"xdao.co/sas/accumulator/smt"
	"xdao.co/sas/metrics"
)

var testTree = solana.MustPublicKeyFromBase58("amt2kaJA14v3urZbZvnc5v2np8jqvc4Z8zDep5wbtzx")

func newClient(t *testing.T, opts ...grpc.ServerOption) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(opts...)
	RegisterAccumulatorServer(srv, &Server{Service: smt.New(testTree)})

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	client := NewClient(cc)
	client.Timeout = 2 * time.Second
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGRPCAccumulator_CreateAndClose(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)
	addr := blake3.Sum256([]byte("addr"))
	hash := blake3.Sum256([]byte("data"))
	disc := [8]byte{2}

	pr, err := client.Prove(ctx, accumulator.ProofRequest{AddressTree: testTree, NewAddresses: [][32]byte{addr}})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	rc, err := client.Apply(ctx, accumulator.Transition{
		AddressTree:  testTree,
		Proof:        accumulator.Some(pr.Proof),
		NewAddresses: []accumulator.NewAddress{{Seed: hash, Address: addr, RootIndex: pr.RootIndex}},
		Outputs:      []accumulator.OutputLeaf{{Address: addr, Discriminator: disc, DataHash: hash, Data: []byte("record")}},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(rc.LeafIndices) != 1 {
		t.Fatalf("unexpected receipt %+v", rc)
	}

	leaf, err := client.Leaf(ctx, addr)
	if err != nil {
		t.Fatalf("Leaf: %v", err)
	}
	if leaf.DataHash != hash || leaf.Discriminator != disc || string(leaf.Data) != "record" {
		t.Fatalf("unexpected leaf %+v", leaf)
	}

	if _, err := client.Apply(ctx, accumulator.Transition{
		AddressTree: testTree,
		Inputs:      []accumulator.InputLeaf{{Address: addr, Discriminator: disc, DataHash: hash, LeafIndex: leaf.LeafIndex, ProveByIndex: true}},
	}); err != nil {
		t.Fatalf("Apply close: %v", err)
	}
	if _, err := client.Leaf(ctx, addr); !errors.Is(err, accumulator.ErrLeafNotFound) {
		t.Fatalf("expected ErrLeafNotFound, got %v", err)
	}
	if _, err := client.Prove(ctx, accumulator.ProofRequest{AddressTree: testTree, NewAddresses: [][32]byte{addr}}); !errors.Is(err, accumulator.ErrAddressExists) {
		t.Fatalf("expected ErrAddressExists, got %v", err)
	}
}

func TestGRPCAccumulator_ErrorsSurviveTransport(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)
	_, err := client.Apply(ctx, accumulator.Transition{
		AddressTree:  solana.PublicKey{9},
		NewAddresses: []accumulator.NewAddress{{Address: blake3.Sum256([]byte("x"))}},
	})
	if !errors.Is(err, accumulator.ErrWrongTree) {
		t.Fatalf("expected ErrWrongTree, got %v", err)
	}
	if !accumulator.IsProofFailure(err) {
		t.Fatalf("expected proof failure classification")
	}
}

func TestCodec_RejectsTruncatedFrames(t *testing.T) {
	p := accumulator.CompressedProof{A: [32]byte{1}, C: [32]byte{3}}
	frame := encodeTransition(accumulator.Transition{
		AddressTree: testTree,
		Proof:       accumulator.Some(p),
		Outputs:     []accumulator.OutputLeaf{{Data: []byte("abc")}},
	})
	got, err := decodeTransition(frame)
	if err != nil {
		t.Fatalf("decodeTransition: %v", err)
	}
	if !got.Proof.Present() || *got.Proof.Proof != p || string(got.Outputs[0].Data) != "abc" {
		t.Fatalf("unexpected transition %+v", got)
	}
	for _, n := range []int{0, 31, 33, len(frame) - 1} {
		if _, err := decodeTransition(frame[:n]); !errors.Is(err, ErrMalformed) {
			t.Fatalf("len %d: expected ErrMalformed, got %v", n, err)
		}
	}
	if _, err := decodeTransition(append(frame, 0)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected trailing byte rejection, got %v", err)
	}
}

func TestMetricsInterceptor(t *testing.T) {
	m := metrics.NewRPC(prometheus.NewRegistry())
	client := newClient(t, grpc.UnaryInterceptor(MetricsInterceptor(m)))
	ctx := context.Background()

	if _, err := client.Leaf(ctx, blake3.Sum256([]byte("missing"))); !errors.Is(err, accumulator.ErrLeafNotFound) {
		t.Fatalf("expected ErrLeafNotFound, got %v", err)
	}
	if _, err := client.Prove(ctx, accumulator.ProofRequest{AddressTree: testTree}); err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if got := testutil.ToFloat64(m.Calls.WithLabelValues("Leaf", "NotFound")); got != 1 {
		t.Fatalf("Leaf NotFound count = %v", got)
	}
	if got := testutil.ToFloat64(m.Calls.WithLabelValues("Prove", "OK")); got != 1 {
		t.Fatalf("Prove OK count = %v", got)
	}
}

func TestClient_Unconnected(t *testing.T) {
	var c *Client
	if _, err := c.Leaf(context.Background(), [32]byte{1}); !errors.Is(err, accumulator.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close on nil client: %v", err)
	}
}
