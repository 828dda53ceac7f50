// Package main provides the candle ingestion CLI: one-shot fetches, scheduled
// syncs and live streaming.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/trendlab/internal/config"
	"github.com/yourusername/trendlab/internal/database"
	"github.com/yourusername/trendlab/internal/logger"
	"github.com/yourusername/trendlab/internal/marketdata"
	"github.com/yourusername/trendlab/internal/metrics"
	"github.com/yourusername/trendlab/internal/repository"
	"github.com/yourusername/trendlab/internal/scheduler"
	"github.com/yourusername/trendlab/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	noDatabase bool
	appLogger  *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	ingestion  *service.IngestionService
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&noDatabase, "no-db", false, "Skip database persistence, write CSV files only")
	rootCmd.AddCommand(fetchCmd, syncCmd, streamCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "data-ingestion",
	Short: "Fetch and persist exchange candles",
	Long:  `Fetches OHLCV candles from the exchange REST API or websocket stream and persists them to CSV files and PostgreSQL.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(cmd.Context()); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [symbol]",
	Short: "Fetch history for one symbol or the whole universe",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(args) == 1 {
			written, err := ingestion.IngestSymbol(ctx, args[0])
			if err != nil {
				return err
			}
			appLogger.WithFields(logrus.Fields{"symbol": args[0], "candles": written}).Info("Fetch complete")
			return nil
		}
		result := ingestion.IngestAll(ctx)
		if result.Errors > 0 {
			return fmt.Errorf("ingestion finished with %d errors", result.Errors)
		}
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the universe sync on the configured schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		schedule := cfg.Data.SyncSchedule
		if schedule == "" {
			schedule = "@daily"
		}

		sched := scheduler.NewScheduler(ingestion, appLogger)
		if err := sched.ScheduleSync(schedule); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()

		server := startMetricsServer()
		defer stopMetricsServer(server)

		appLogger.WithField("schedule", schedule).Info("Sync running, press Ctrl+C to stop")
		waitForShutdown(cmd.Context())
		return nil
	},
}

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream closed candles over websocket and persist them",
	RunE: func(cmd *cobra.Command, args []string) error {
		stream := marketdata.NewStreamClient(cfg.Exchange.StreamURL, appLogger)
		stream.AddHandler(ingestion.HandleStreamCandle)

		if err := stream.Connect(cmd.Context(), cfg.Data.Symbols, cfg.Data.Timeframe); err != nil {
			return err
		}
		defer stream.Close()

		server := startMetricsServer()
		defer stopMetricsServer(server)

		appLogger.WithFields(logrus.Fields{
			"symbols":  cfg.Data.Symbols,
			"interval": cfg.Data.Timeframe,
		}).Info("Streaming, press Ctrl+C to stop")
		waitForShutdown(cmd.Context())
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("data-ingestion %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(loaded, region, secretName); err != nil {
			return err
		}
	}

	if err := config.Validate(loaded); err != nil {
		return err
	}

	cfg = loaded
	appLogger = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	return nil
}

func setupDependencies(ctx context.Context) error {
	var candleRepo repository.CandleRepository
	if !noDatabase {
		connected, err := database.NewDB(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("database connection failed (use --no-db for CSV only): %w", err)
		}
		if err := connected.EnsureSchema(ctx); err != nil {
			connected.Close()
			return err
		}
		db = connected
		candleRepo = repository.NewPostgresCandleRepository(db)
	}

	client := marketdata.NewClient(marketdata.ClientConfig{
		APIURL:   cfg.Exchange.APIURL,
		APIKey:   cfg.Exchange.APIKey,
		CacheTTL: time.Duration(cfg.Exchange.CacheTTLSeconds) * time.Second,
		HTTP: marketdata.HTTPClientConfig{
			Timeout:           time.Duration(cfg.Exchange.TimeoutSeconds) * time.Second,
			MaxRetries:        cfg.Exchange.MaxRetries,
			RetryWaitMin:      100 * time.Millisecond,
			RetryWaitMax:      10 * time.Second,
			RateLimit:         cfg.Exchange.RateLimitPerSec,
			CircuitBreakerMax: cfg.Exchange.CircuitBreakerMax,
		},
	}, appLogger)

	ingestion = service.NewIngestionService(client, candleRepo, cfg.Data, appLogger)
	return nil
}

func startMetricsServer() *http.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}
	appLogger.WithField("port", cfg.Metrics.Port).Info("Serving metrics")
	return metrics.Serve(cfg.Metrics.Port, cfg.Metrics.Path)
}

func stopMetricsServer(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}

func waitForShutdown(ctx context.Context) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}
}
