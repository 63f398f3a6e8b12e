package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rentfleet/service-rental-booking/internal/application"
	"github.com/rentfleet/service-rental-booking/internal/common/database"
	"github.com/rentfleet/service-rental-booking/internal/common/health"
	"github.com/rentfleet/service-rental-booking/internal/common/kafka"
	"github.com/rentfleet/service-rental-booking/internal/common/logger"
	"github.com/rentfleet/service-rental-booking/internal/common/middleware"
	"github.com/rentfleet/service-rental-booking/internal/config"
	bookingDomain "github.com/rentfleet/service-rental-booking/internal/domain/booking"
	"github.com/rentfleet/service-rental-booking/internal/domain/directory"
	"github.com/rentfleet/service-rental-booking/internal/events"
	"github.com/rentfleet/service-rental-booking/internal/handler"
	"github.com/rentfleet/service-rental-booking/internal/repository"
	"github.com/rentfleet/service-rental-booking/internal/scheduler"
	"github.com/rentfleet/service-rental-booking/migrations"
)

const serviceName = "service-rental-booking"

// stores bundles the Booking Store and Reference Directory selected by STORE_BACKEND.
// durableDirectory is false when the directory lives in process memory and has to be
// rebuilt from the directory topic on every start.
type stores struct {
	bookings         bookingDomain.BookingRepository
	dir              directory.Directory
	durableDirectory bool
	checkers         []health.Checker
}

// services bundles the application services shared by handlers, consumer and scheduler.
type services struct {
	reconciler *application.Reconciler
	bookings   *application.BookingService
	stats      *application.StatsService
	directory  *application.DirectoryService
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("store_backend", cfg.StoreBackend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize stores", zap.Error(err))
	}

	// Initialize Kafka producer
	var publisher application.EventPublisher
	if cfg.KafkaConfig.Enabled {
		producer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	// Initialize application services
	svc := newServices(cfg, st, publisher, log)

	// Initialize and start directory event consumer in a goroutine
	if cfg.KafkaConfig.Enabled {
		directoryConsumer := newDirectoryConsumer(cfg, st, svc.directory, log)
		defer func() { _ = directoryConsumer.Close() }()

		go func() {
			log.Info("starting directory event consumer")
			if err := directoryConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("directory event consumer error", zap.Error(err))
			}
		}()
	}

	// Periodic reconciliation is optional; reads reconcile on their own.
	if cfg.ReconcileConfig.Interval > 0 {
		go scheduler.New(svc.reconciler, cfg.ReconcileConfig.Interval, log).Start(ctx)
	}

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	health.NewHandler(serviceName, st.checkers...).RegisterRoutes(router)

	// Register routes
	handler.NewBookingHandler(svc.bookings, svc.stats).RegisterRoutes(&router.RouterGroup)
	handler.NewAdminBookingHandler(svc.reconciler).RegisterRoutes(&router.RouterGroup)
	handler.NewDirectoryHandler(svc.directory).RegisterRoutes(&router.RouterGroup)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Stop the consumer and scheduler
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}

// newServices wires the application services. publisher may be nil.
func newServices(cfg *config.ServiceConfig, st *stores, publisher application.EventPublisher, log *zap.Logger) *services {
	reconciler := application.NewReconciler(
		st.bookings,
		publisher,
		cfg.KafkaConfig.BookingTopic,
		cfg.Location,
		log,
	)
	return &services{
		reconciler: reconciler,
		bookings: application.NewBookingService(
			st.bookings,
			st.dir,
			reconciler,
			publisher,
			application.BookingServiceOptions{
				RequireKnownReferences: cfg.RequireKnownReferences,
				ReconcileOnRead:        cfg.ReconcileConfig.OnRead,
				EventTopic:             cfg.KafkaConfig.BookingTopic,
			},
			log,
		),
		stats:     application.NewStatsService(st.bookings, st.dir, reconciler, cfg.ReconcileConfig.OnRead, log),
		directory: application.NewDirectoryService(st.dir, log),
	}
}

// newDirectoryConsumer joins the shared consumer group when the directory is persisted.
// An in-memory directory replays the whole topic under a per-process group instead, so
// a restarted or additional instance still sees every record.
func newDirectoryConsumer(cfg *config.ServiceConfig, st *stores, writer events.DirectoryWriter, log *zap.Logger) *events.DirectoryEventConsumer {
	groupID := cfg.KafkaConfig.GroupPrefix + "booking-directory"
	if st.durableDirectory {
		return events.NewDirectoryEventConsumer(cfg.KafkaConfig.Brokers, groupID, cfg.KafkaConfig.DirectoryTopic, writer, log)
	}
	return events.NewReplayingDirectoryEventConsumer(cfg.KafkaConfig.Brokers, groupID+"-", cfg.KafkaConfig.DirectoryTopic, writer, log)
}

// buildStores connects the configured backend. The dynamodb backend keeps bookings in
// DynamoDB and the directory in memory, rebuilt from directory events.
func buildStores(ctx context.Context, cfg *config.ServiceConfig, log *zap.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		log.Warn("using in-memory stores, data is lost on restart")
		return &stores{
			bookings: repository.NewMemoryBookingRepository(),
			dir:      repository.NewMemoryDirectoryRepository(),
		}, nil

	case config.StoreBackendDynamoDB:
		client, err := database.ConnectDynamoDB(ctx, database.DynamoDBConfig{
			Region:   cfg.DynamoDBConfig.Region,
			Endpoint: cfg.DynamoDBConfig.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		table := cfg.DynamoDBConfig.Table
		return &stores{
			bookings: repository.NewDynamoBookingRepository(client, table),
			dir:      repository.NewMemoryDirectoryRepository(),
			checkers: []health.Checker{health.CheckFunc{
				Label: "dynamodb",
				Fn: func(ctx context.Context) error {
					_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
					return err
				},
			}},
		}, nil

	default:
		db, err := database.Connect(cfg.DBConfig, log)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := database.RunMigrations(ctx, db, migrations.FS, log); err != nil {
				return nil, err
			}
		}
		return &stores{
			bookings:         repository.NewGormBookingRepository(db),
			dir:              repository.NewGormDirectoryRepository(db),
			durableDirectory: true,
			checkers:         []health.Checker{health.NewDBChecker(db)},
		}, nil
	}
}
