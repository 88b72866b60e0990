package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/sumanths012/SymptoSense/internal/app"
	"github.com/sumanths012/SymptoSense/internal/common"
	"github.com/sumanths012/SymptoSense/internal/logging"
	"github.com/sumanths012/SymptoSense/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("SYMPTOSENSE_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	svc := server.NewExtractionService(a.Processor, a.Store, logger)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.WatchSynonyms(gctx) })

	if cfg.Server.HTTPAddr != "" {
		httpSrv := server.NewHTTPServer(server.HTTPConfig{
			Addr:            cfg.Server.HTTPAddr,
			MaxUploadBytes:  cfg.Server.MaxUploadBytes,
			RequestTimeout:  cfg.Server.RequestTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}, svc, logger)
		g.Go(func() error { return httpSrv.Start(gctx) })
	}

	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("grpc listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		grpcSrv, hs := server.NewGRPCServer(svc, logger)
		// reflection for grpcurl
		reflection.Register(grpcSrv)
		g.Go(func() error {
			logger.Info("grpc server listening", "addr", cfg.Server.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
			grpcSrv.GracefulStop()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		a.Close()
		os.Exit(1)
	}
	logger.Info("shut down cleanly")
}
