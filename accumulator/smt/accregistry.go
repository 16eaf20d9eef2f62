package smt

import (
	"github.com/spf13/pflag"

	"xdao.co/sas/accumulator"
	"xdao.co/sas/accumulator/accregistry"
	"xdao.co/sas/config"
)

var flagRootHistory int

func init() {
	accregistry.MustRegister(accregistry.Backend{
		Name:        "smt",
		Description: "In-memory sparse Merkle accumulator",
		Usage:       accregistry.UsageCLI | accregistry.UsageDaemon,
		Flags: func(fs *pflag.FlagSet) {
			fs.IntVar(&flagRootHistory, "smt-root-history", 0, "Provable root history (for --backend=smt); 0 uses the configured value")
		},
		Open: func(cfg config.Program) (accumulator.Service, accregistry.Closer, error) {
			history := cfg.RootHistory()
			if flagRootHistory > 0 {
				history = flagRootHistory
			}
			return New(cfg.AddressTree(), WithRootHistory(history)), nil, nil
		},
	})
}
