package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"temple-services-backend/internal/api/grpc/interceptor"
	httpapi "temple-services-backend/internal/api/http"
	"temple-services-backend/internal/app"
	"temple-services-backend/internal/config"
	"temple-services-backend/internal/logger"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Temple Services Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())
	logger.Info("Store configuration", "backend", cfg.Store.Backend, "auth_provider", cfg.Auth.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize store
	backend, err := app.Open(ctx, cfg, true)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer backend.Close()

	// Initialize Security
	verifier, err := backend.Verifier(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize token verifier", "error", err)
		log.Fatalf("Failed to initialize token verifier: %v", err)
	}

	// Initialize Services
	services := app.NewServices(backend.Store, cfg)
	handler := httpapi.NewHandler(services.API, cfg.API)
	router := httpapi.NewRouter(handler, httpapi.NewAuthMiddleware(verifier, services.Resolver))

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Set up gRPC health server
	var grpcServer *grpc.Server
	healthServer := health.NewServer()
	if addr := cfg.GetGRPCAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		grpcServer = grpc.NewServer(
			grpc.ChainUnaryInterceptor(interceptor.Unary()),
			grpc.ChainStreamInterceptor(interceptor.Stream()),
		)
		healthpb.RegisterHealthServer(grpcServer, healthServer)

		// Register reflection service for grpcurl
		reflection.Register(grpcServer)

		go func() {
			logger.Info("gRPC health server listening", "address", addr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("Failed to serve gRPC", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.Error("HTTP server error", "error", err)
	}

	// Graceful shutdown
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	logger.Info("Server stopped")
}
