package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/drive-renamer/internal/app"
	"github.com/joseph-ayodele/drive-renamer/internal/common"
	"github.com/joseph-ayodele/drive-renamer/internal/server"
)

var version = "dev"

func main() {
	cfg := common.LoadConfig()
	logger, closeLogger := common.SetupLogger(cfg.Log)
	defer func() { _ = closeLogger() }()
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		if common.IsConfigError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
	defer a.Close()
	queue := a.StartQueue()

	// gRPC health follows the job store
	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	go watchHealth(ctx, a, healthServer, logger)
	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC serve error", "error", err)
		}
	}()

	httpLis, err := net.Listen("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.HTTPAddr, "error", err)
		os.Exit(1)
	}
	handler := server.NewHandler(a.Worker, server.Options{Version: version, RunTimeout: cfg.Server.RunTimeout}, logger)
	logger.Info("drive-renamer worker listening", "http", cfg.Server.HTTPAddr, "grpc", cfg.Server.GRPCAddr, "version", version)
	if err := server.New(cfg.Server.HTTPAddr, handler, logger).Serve(ctx, httpLis, 30*time.Second); err != nil {
		logger.Error("http serve error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.RunTimeout)
	defer cancel()
	healthServer.Shutdown()
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("drive-renamer worker stopped")
}

func watchHealth(ctx context.Context, a *app.App, hs *health.Server, logger *slog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := a.DB.HealthCheck(ctx, 5*time.Second)
		if (err == nil) == serving {
			continue
		}
		serving = err == nil
		if serving {
			logger.Info("health.db.recovered")
			hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		} else {
			logger.Warn("health.db.failed", "error", err)
			hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		}
	}
}
