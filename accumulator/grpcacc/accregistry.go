package grpcacc

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"xdao.co/sas/accumulator"
	"xdao.co/sas/accumulator/accregistry"
	"xdao.co/sas/config"
)

var (
	flagTarget      string
	flagTimeout     time.Duration
	flagMaxMsgBytes int
)

func init() {
	accregistry.MustRegister(accregistry.Backend{
		Name:        "grpc",
		Description: "Remote accumulator served by sas-accumulatord",
		Usage:       accregistry.UsageCLI,
		Flags: func(fs *pflag.FlagSet) {
			fs.StringVar(&flagTarget, "grpc-target", "", "sas-accumulatord host:port (for --backend=grpc)")
			fs.DurationVar(&flagTimeout, "grpc-timeout", 10*time.Second, "Per-RPC timeout (for --backend=grpc)")
			fs.IntVar(&flagMaxMsgBytes, "grpc-max-msg-bytes", 0, "Max gRPC message size in bytes; 0 keeps the grpc default")
		},
		Open: func(config.Program) (accumulator.Service, accregistry.Closer, error) {
			target := strings.TrimSpace(flagTarget)
			if target == "" {
				return nil, nil, errors.New("missing --grpc-target")
			}
			client, err := Connect(target, flagMaxMsgBytes)
			if err != nil {
				return nil, nil, err
			}
			client.Timeout = flagTimeout
			return client, client.Close, nil
		},
	})
}
