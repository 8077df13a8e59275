// cmd/verifier/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"loan-verification/internal/audit"
	"loan-verification/internal/common/aws"
	"loan-verification/internal/common/config"
	"loan-verification/internal/common/database"
	"loan-verification/internal/common/logger"
	"loan-verification/internal/common/observability"
	"loan-verification/internal/notify"
	"loan-verification/internal/storage/postgres"
	"loan-verification/internal/storage/rediscache"
	"loan-verification/internal/verification"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	applicationID := flag.String("application", "", "loan application id to verify")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting verification engine...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	if *applicationID == "" {
		zapLog.Fatal("missing required -application flag")
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()
	retries := cfg.Verification.ConnectRetries

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, retries, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, retries, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (audit trail only) ---
	var recorder audit.Recorder = audit.NoOpRecorder{}
	if cfg.Audit.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, retries, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		recorder = audit.NewESRecorder(esClient.Client, cfg.Audit.Index, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init SES/SNS dispatcher ---
	sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("SES client init failed", zap.Error(err))
	}
	snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("SNS client init failed", zap.Error(err))
	}
	dispatcher := notify.NewDispatcher(cfg.Notifications, sesClient, snsClient, log)

	// --- Compose the gateway chain: postgres -> cache -> audit ---
	var gateway verification.PersistenceGateway = postgres.NewGateway(pg.DB, log)
	gateway = rediscache.NewGateway(gateway, redisClient.Client,
		time.Duration(cfg.Verification.CacheTTL)*time.Second, log)
	gateway = audit.NewGateway(gateway, recorder, log)

	// --- Health/Metrics server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.App.MetricsAddr))
		if err := http.ListenAndServe(cfg.App.MetricsAddr, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Start the verification session ---
	controller := verification.NewController(gateway, dispatcher, log)

	startCtx, cancel := context.WithTimeout(ctx,
		time.Duration(cfg.Verification.SubmitTimeout)*time.Millisecond)
	defer cancel()

	if err := controller.Start(startCtx, *applicationID); err != nil {
		zapLog.Fatal("session start failed",
			zap.String("applicationId", *applicationID),
			zap.Error(err),
		)
	}

	if step, ok := controller.CurrentStep(); ok {
		zapLog.Info("session active",
			zap.String("applicationId", *applicationID),
			zap.String("currentStep", step.ID),
			zap.Int("ordinal", step.Ordinal),
		)
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, closing session...",
		zap.String("state", string(controller.State())),
	)
	zapLog.Info("Verification engine stopped gracefully")
}
