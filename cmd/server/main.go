package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"inference-service/config"
	"inference-service/internal/batcher"
	"inference-service/internal/detector"
	"inference-service/internal/health"
	"inference-service/internal/httpapi"
	"inference-service/internal/lifecycle"
	"inference-service/internal/logging"
	"inference-service/internal/metrics"
	"inference-service/internal/publisher"
	"inference-service/internal/servicer"
	"inference-service/internal/workerpool"
	"inference-service/proto"
)

func init() {
	log.SetOutput(os.Stdout)
	config.LoadEnvironment()

	if config.IsDevelopmentMode() {
		log.Println("development checklist:")
		log.Println("  1. broker: make sure Kafka is reachable at KAFKA_BOOTSTRAP_SERVERS")
		log.Println("  2. model: the stub detector is always used; MODEL_PPE_MODEL_PATH is not read")
		log.Println("  3. HTTP will be available at http://localhost:8080/api/v1")
	}
}

func main() {
	cfg := config.Load()

	zapLogger, err := logging.New(logging.Config{
		Level:       cfg.Server.LogLevel,
		Format:      cfg.Server.LogFormat,
		Development: config.IsDevelopmentMode(),
	})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting inference service",
		zap.String("http_addr", cfg.Server.HTTPAddr),
		zap.String("grpc_addr", cfg.Server.GRPCAddr),
	)

	pool := workerpool.New(runtime.NumCPU())
	defer pool.Close()

	det := detector.NewStub(detector.Config{
		ModelID:             "ppe-detector",
		ModelVersion:        "1.0.0",
		ConfidenceThreshold: cfg.Model.ConfidenceThreshold,
	})

	pub := publisher.New(publisher.Config{
		BootstrapServers:  cfg.Publisher.Broker.BootstrapServers,
		Topic:             cfg.Publisher.Topic,
		ClientID:          "inference-service",
		ServiceName:       "ppe-inference",
		MaxPending:        cfg.Publisher.MaxPending,
		Acks:              cfg.Publisher.Acks,
		CompressionType:   cfg.Publisher.CompressionType,
		Retries:           cfg.Publisher.Broker.Retries,
		RetryBackoffMs:    cfg.Publisher.Broker.RetryBackoffMs,
		LingerMs:          cfg.Publisher.LingerMs,
		EnableIdempotence: cfg.Publisher.EnableIdempotence,
		RequestTimeoutMs:  cfg.Publisher.Broker.RequestTimeoutMs,
		FlushTimeout:      cfg.Publisher.FlushTimeout,
		SecurityProtocol:  cfg.Publisher.Broker.SecurityProtocol,
		SASLMechanism:     cfg.Publisher.Broker.SASLMechanism,
	}, zapLogger)

	alertPub := publisher.NewAlertPublisher(publisher.AlertConfig{
		BootstrapServers: cfg.Alert.Broker.BootstrapServers,
		Topic:            cfg.Alert.Topic,
		ClientID:         "inference-service-alerts",
		Retries:          cfg.Alert.Broker.Retries,
		RetryBackoffMs:   cfg.Alert.Broker.RetryBackoffMs,
		RequestTimeoutMs: cfg.Alert.Broker.RequestTimeoutMs,
		AckTimeout:       cfg.Alert.AckTimeout,
		SecurityProtocol: cfg.Alert.Broker.SecurityProtocol,
		SASLMechanism:    cfg.Alert.Broker.SASLMechanism,
	}, zapLogger)

	b := batcher.New(batcher.Config{
		MaxBatchSize:   cfg.Model.BatchSize,
		BatchTimeoutMs: cfg.Model.BatchTimeoutMs,
	}, det, pub, pool, zapLogger)

	modelInfo := servicer.ModelInfo{
		ModelID:             "ppe-detector",
		ModelVersion:        "1.0.0",
		ModelType:           cfg.Model.PPEModelType,
		SupportedViolations: []string{"no_helmet", "no_safety_vest", "no_safety_glasses", "no_gloves", "no_safety_boots", "no_ear_protection", "no_face_mask"},
		SupportedActivities: []string{"walking", "standing", "operating_machinery", "lifting", "climbing", "running", "falling", "reaching", "carrying"},
		MaxBatchSize:        int32(cfg.Model.BatchSize),
	}
	svc := servicer.New(b, det, servicer.NewPublisherHealth(pub), modelInfo, zapLogger)

	checker := health.NewChecker(svc, 5*time.Second)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	coordinator := lifecycle.New(lifecycle.Config{
		WarmupBatchSize: cfg.Model.BatchSize,
		WarmupRounds:    3,
		ShutdownGrace:   cfg.Server.ShutdownGrace,
	}, det, b, zapLogger)
	coordinator.Publisher = pub
	coordinator.Alert = alertPub

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := coordinator.Startup(ctx); err != nil {
		zapLogger.Fatal("startup failed", zap.Error(err))
	}

	grpcServer := grpc.NewServer()
	proto.RegisterInferenceServer(grpcServer, svc)

	grpcListener, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		zapLogger.Fatal("failed to bind gRPC listener", zap.Error(err))
	}
	go func() {
		zapLogger.Info("gRPC server listening", zap.String("addr", cfg.Server.GRPCAddr))
		if err := grpcServer.Serve(grpcListener); err != nil {
			zapLogger.Error("gRPC server stopped", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: httpapi.NewRouter(svc, checker),
	}
	go func() {
		zapLogger.Info("HTTP server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	coordinator.Servers = []lifecycle.Server{httpServer, grpcServerShutdown{grpcServer}}

	<-ctx.Done()
	zapLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace+5*time.Second)
	defer cancel()
	if err := coordinator.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("shutdown completed with errors", zap.Error(err))
		os.Exit(1)
	}
	zapLogger.Info("inference service stopped cleanly")
}

// grpcServerShutdown adapts *grpc.Server's GracefulStop (no error, no
// context) to the lifecycle.Server interface the coordinator drives
// uniformly alongside *http.Server.
type grpcServerShutdown struct {
	srv *grpc.Server
}

func (g grpcServerShutdown) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		g.srv.Stop()
		return ctx.Err()
	}
}
