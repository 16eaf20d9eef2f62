package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"xdao.co/sas/accumulator/accregistry"
	"xdao.co/sas/accumulator/grpcacc"
	"xdao.co/sas/config"
	"xdao.co/sas/metrics"

	_ "xdao.co/sas/accumulator/smt"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("sas-accumulatord", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	listen := fs.String("listen", "127.0.0.1:7450", "listen address")
	backend := fs.String("backend", "smt", "Accumulator backend name")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	configPath := fs.String("config", "", "Program configuration file")
	logLevel := fs.String("log-level", "", "Log level (overrides the config file)")
	logFormat := fs.String("log-format", "", "Log format: json or console (overrides the config file)")
	metricsListen := fs.String("metrics-listen", "", "Serve prometheus metrics on this address")

	accregistry.RegisterFlags(fs, accregistry.UsageDaemon)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *listBackends {
		for _, b := range accregistry.List(accregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	file := &config.File{}
	if *configPath != "" {
		var err error
		if file, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(errOut, err)
			return 2
		}
	}
	if *logLevel != "" {
		file.Log.Level = *logLevel
	}
	if *logFormat != "" {
		file.Log.Format = *logFormat
	}
	if !fs.Changed("listen") && file.Accumulator.Listen != "" {
		*listen = file.Accumulator.Listen
	}
	log, err := config.NewLogger(file.Log, errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	cfg, err := file.Program()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	svc, closeFn, err := accregistry.Open(*backend, accregistry.UsageDaemon, cfg)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Error().Err(err).Str("listen", *listen).Msg("listen failed")
		return 1
	}
	defer lis.Close()

	reg := prometheus.NewRegistry()
	opts := []grpc.ServerOption{grpc.UnaryInterceptor(grpcacc.MetricsInterceptor(metrics.NewRPC(reg)))}
	if n := file.Accumulator.MaxMsgBytes; n > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(n), grpc.MaxSendMsgSize(n))
	}
	s := grpc.NewServer(opts...)
	grpcacc.RegisterAccumulatorServer(s, &grpcacc.Server{Service: svc, Log: log})

	var metricsSrv *http.Server
	if *metricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: *metricsListen, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		s.GracefulStop()
		if metricsSrv != nil {
			_ = metricsSrv.Close()
		}
	}()

	log.Info().
		Str("listen", lis.Addr().String()).
		Str("backend", *backend).
		Stringer("address_tree", cfg.AddressTree()).
		Msg("sas-accumulatord listening")
	if err := s.Serve(lis); err != nil {
		log.Error().Err(err).Msg("serve failed")
		return 1
	}
	return 0
}
