package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.5x5.cz/ptah/dbschema"
	"go.5x5.cz/ptah/migration/migrator"

	"github.com/kiranms1996/job-management/internal/analytics"
	"github.com/kiranms1996/job-management/internal/api"
	"github.com/kiranms1996/job-management/internal/circuitbreaker"
	"github.com/kiranms1996/job-management/internal/config"
	"github.com/kiranms1996/job-management/internal/cron"
	"github.com/kiranms1996/job-management/internal/metrics"
	"github.com/kiranms1996/job-management/internal/notify"
	"github.com/kiranms1996/job-management/internal/store/postgres"
	"github.com/kiranms1996/job-management/internal/sweeper"
	"github.com/kiranms1996/job-management/internal/transport/channel"
	"github.com/kiranms1996/job-management/internal/upload"
	"github.com/kiranms1996/job-management/migrations"

	_ "github.com/lib/pq"
)

// cronParserAdapter adapts internal/cron.Parser to sweeper.CronParser.
type cronParserAdapter struct {
	parser *cron.Parser
}

func (a *cronParserAdapter) Parse(expression string, timezone string) (sweeper.CronSchedule, error) {
	sched, err := a.parser.Parse(expression, timezone)
	if err != nil {
		return nil, err
	}
	return &cronScheduleAdapter{sched: sched}, nil
}

type cronScheduleAdapter struct {
	sched cron.Schedule
}

func (a *cronScheduleAdapter) Next(after time.Time) time.Time {
	return a.sched.Next(after)
}

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "migrate":
		os.Exit(runMigrate(os.Args[2:]))
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`jobmanager - job listing and application service

Usage:
  jobmanager <command>

Commands:
  serve      Start the HTTP API server
  migrate    Apply schema migrations (up | down | status)
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (secrets masked)
  version    Print version information

Environment Variables:
  DATABASE_URL              PostgreSQL connection string (required)
  REDIS_ADDR                Redis address for view analytics (optional)
  HTTP_ADDR                 HTTP server address (default: ":8080")
  ADMIN_TOKEN               Bearer token for /admin endpoints (empty disables them)

  DB_OP_TIMEOUT             Database operation timeout (default: "5s")
  DB_MAX_OPEN_CONNS         Max open database connections (default: "25")
  DB_MAX_IDLE_CONNS         Max idle database connections (default: "5")
  DB_CONN_MAX_LIFETIME      Max connection lifetime (default: "30m")
  DB_CONN_MAX_IDLE_TIME     Max connection idle time (default: "5m")

  HTTP_SHUTDOWN_TIMEOUT     Graceful HTTP shutdown timeout (default: "10s")

  UPLOAD_DIR                Resume storage directory (default: "./uploads")
  UPLOAD_BASE_URL           Public base URL for stored resumes (default: "/uploads")
  UPLOAD_MAX_BYTES          Max resume upload size in bytes (default: "5242880")

  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  METRICS_PATH              Metrics endpoint path (default: "/metrics")
  METRICS_PORT              Metrics server port (default: "9090")

  NOTIFY_WEBHOOK_URL        Webhook for new applications (empty disables)
  NOTIFY_WEBHOOK_SECRET     HMAC secret for webhook signatures
  NOTIFY_TIMEOUT            Per-delivery timeout (default: "30s")
  NOTIFY_BUFFER_SIZE        Event buffer capacity (default: "100")
  NOTIFY_DRAIN_TIMEOUT      Notifier drain timeout on shutdown (default: "30s")
  CIRCUIT_BREAKER_THRESHOLD Consecutive failures before opening (default: "5", 0 disables)
  CIRCUIT_BREAKER_COOLDOWN  Open-state cooldown (default: "2m")

  RETENTION_ENABLED         Enable old-application sweeper (default: "false")
  RETENTION_SCHEDULE        Cron schedule or descriptor for sweeps (default: "0 3 * * *")
  RETENTION_MAX_AGE         Application retention window (default: "8760h")
  ANALYTICS_RETENTION       Redis counter TTL (default: "720h")`)
}

func runServe() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		return exitRuntimeError
	}
	defer db.Close()

	// Configure connection pool
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	log.Printf("jobmanager: db pool configured (max_open=%d, max_idle=%d, max_lifetime=%s, max_idle_time=%s)",
		cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		return exitRuntimeError
	}

	store := postgres.New(db, cfg.DBOpTimeout)

	storage, err := upload.NewDiskStorage(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to prepare upload directory: %v\n", err)
		return exitRuntimeError
	}

	// Initialize metrics sink (optional)
	var metricsSink *metrics.PrometheusSink
	var metricsServer *http.Server

	if cfg.MetricsEnabled {
		metricsSink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		log.Printf("jobmanager: metrics enabled (port=%s, path=%s)", cfg.MetricsPort, cfg.MetricsPath)

		// Start metrics HTTP server on separate port
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    ":" + cfg.MetricsPort,
			Handler: metricsMux,
		}
		go func() {
			log.Printf("jobmanager: metrics server listening on :%s", cfg.MetricsPort)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("jobmanager: metrics server error: %v", err)
			}
		}()
	} else {
		log.Println("jobmanager: METRICS_ENABLED not set; metrics disabled")
	}

	apiHandler := api.NewHandler(store, storage).
		WithHealthChecker(db).
		WithAdminToken(cfg.AdminToken).
		WithMaxUploadBytes(cfg.UploadMaxBytes)
	if metricsSink != nil {
		apiHandler = apiHandler.WithMetrics(metricsSink)
	}

	// Wire analytics if Redis is configured
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		sink := analytics.NewRedisSink(redisClient, cfg.AnalyticsRetention)
		apiHandler = apiHandler.WithViews(sink)
		log.Printf("jobmanager: analytics enabled (redis=%s)", cfg.RedisAddr)
	} else {
		log.Println("jobmanager: REDIS_ADDR not set; analytics disabled")
	}

	// Wire the notifier if a webhook URL is configured
	var notifierWg sync.WaitGroup
	var cancelNotifier context.CancelFunc

	if cfg.NotifyWebhookURL != "" {
		var busSink metrics.Sink
		if metricsSink != nil {
			busSink = metricsSink
		}
		bus := channel.NewEventBus(cfg.NotifyBufferSize, busSink)
		apiHandler = apiHandler.WithEmitter(bus)

		notifier := notify.New(notify.Config{
			WebhookURL: cfg.NotifyWebhookURL,
			Secret:     cfg.NotifyWebhookSecret,
			Timeout:    cfg.NotifyTimeout,
		}, store, notify.NewHTTPWebhookSender()).
			WithDrainTimeout(cfg.NotifyDrainTimeout)
		if metricsSink != nil {
			notifier = notifier.WithMetrics(metricsSink)
		}
		if cfg.CircuitBreakerThreshold > 0 {
			notifier = notifier.WithBreaker(circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown))
		}

		var notifierCtx context.Context
		notifierCtx, cancelNotifier = context.WithCancel(context.Background())
		notifierWg.Add(1)
		go func() {
			defer notifierWg.Done()
			notifier.Run(notifierCtx, bus.Channel())
		}()
		log.Printf("jobmanager: notifications enabled (buffer=%d, timeout=%s)", cfg.NotifyBufferSize, cfg.NotifyTimeout)
	} else {
		log.Println("jobmanager: NOTIFY_WEBHOOK_URL not set; notifications disabled")
	}

	// Start the retention sweeper if enabled
	var sweeperWg sync.WaitGroup
	var cancelSweeper context.CancelFunc

	if cfg.RetentionEnabled {
		swp := sweeper.New(sweeper.Config{
			Schedule: cfg.RetentionSchedule,
			MaxAge:   cfg.RetentionMaxAge,
		}, store, &cronParserAdapter{parser: cron.NewParser()})
		if metricsSink != nil {
			swp = swp.WithMetrics(metricsSink)
		}

		var sweeperCtx context.Context
		sweeperCtx, cancelSweeper = context.WithCancel(context.Background())
		sweeperWg.Add(1)
		go func() {
			defer sweeperWg.Done()
			if err := swp.Run(sweeperCtx); err != nil && err != context.Canceled {
				log.Printf("jobmanager: sweeper error: %v", err)
			}
		}()
		log.Printf("jobmanager: retention sweeper enabled (schedule=%q, max_age=%s)", cfg.RetentionSchedule, cfg.RetentionMaxAge)
	} else {
		log.Println("jobmanager: RETENTION_ENABLED not set; sweeper disabled")
	}

	// Serve uploaded resumes alongside the API
	mux := http.NewServeMux()
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	mux.Handle("/", apiHandler)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("jobmanager: http server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("jobmanager: http server error: %v", err)
		}
	}()

	log.Printf("jobmanager: started (http=%s)", cfg.HTTPAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	log.Printf("jobmanager: received signal %v, shutting down", received)

	// Phase 1: Stop the HTTP server so no new events are emitted
	log.Println("jobmanager: stopping http server...")
	httpShutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer httpShutdownCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		log.Printf("jobmanager: http server shutdown error: %v", err)
	}
	log.Println("jobmanager: http server stopped")

	// Phase 2: Stop the sweeper
	if cancelSweeper != nil {
		log.Println("jobmanager: stopping sweeper...")
		cancelSweeper()
		sweeperWg.Wait()
		log.Println("jobmanager: sweeper stopped")
	}

	// Phase 3: Stop the notifier (drains buffered events before returning)
	if cancelNotifier != nil {
		log.Println("jobmanager: stopping notifier (draining events)...")
		cancelNotifier()
		notifierWg.Wait()
		log.Println("jobmanager: notifier stopped")
	}

	// Phase 4: Stop metrics server if running
	if metricsServer != nil {
		log.Println("jobmanager: stopping metrics server...")
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer metricsShutdownCancel()
		if err := metricsServer.Shutdown(metricsShutdownCtx); err != nil {
			log.Printf("jobmanager: metrics server shutdown error: %v", err)
		}
		log.Println("jobmanager: metrics server stopped")
	}

	log.Println("jobmanager: stopped")
	return exitSuccess
}

func runMigrate(args []string) int {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "configuration error: DATABASE_URL is required")
		return exitInvalidConfig
	}

	conn, err := dbschema.ConnectToDatabase(context.Background(), cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		return exitRuntimeError
	}
	defer conn.Close()

	mig, err := migrator.NewFSMigrator(conn, migrations.FS)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load migrations: %v\n", err)
		return exitRuntimeError
	}

	ctx := context.Background()

	switch direction {
	case "up":
		if err := mig.MigrateUp(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			return exitRuntimeError
		}
		fmt.Println("migrations applied")
	case "down":
		if err := mig.MigrateDown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "rollback failed: %v\n", err)
			return exitRuntimeError
		}
		fmt.Println("last migration rolled back")
	case "status":
		status, err := mig.GetMigrationStatus(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read migration status: %v\n", err)
			return exitRuntimeError
		}
		fmt.Printf("current version: %d\n", status.CurrentVersion)
		fmt.Printf("total migrations: %d\n", status.TotalMigrations)
		fmt.Printf("pending: %v\n", status.PendingMigrations)
	default:
		fmt.Fprintf(os.Stderr, "unknown migrate direction: %s (want up, down, or status)\n", direction)
		return exitRuntimeError
	}

	return exitSuccess
}

func runValidate() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("jobmanager version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
