package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"proxyscraper/internal/config"
	"proxyscraper/internal/db"
	"proxyscraper/internal/geoip"
	"proxyscraper/internal/logger"
	"proxyscraper/internal/metrics"
	"proxyscraper/internal/server"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var serveListen string
var serveNow bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Collect on a schedule and serve subscriptions over HTTP",
	Long: `Runs the collect cycle (collect, then prune to max_proxies) on the cron
schedule from the serve section of the config, and serves the stored proxies
at /sub and /sub/{protocol}, with Prometheus metrics at /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			logger.Log.Fatalf("Error loading config: %v", err)
		}
		if serveListen != "" {
			cfg.Serve.Listen = serveListen
		}

		database, err := db.Connect(cfg.Database.Path)
		if err != nil {
			logger.Log.Fatalf("Error connecting to DB: %v", err)
		}
		defer db.Close(database)
		if err := db.Migrate(database); err != nil {
			logger.Log.Fatalf("Error migrating DB: %v", err)
		}

		var country db.CountryFunc
		if err := geoip.Init(cfg.GeoIP.CountryPath); err != nil {
			logger.Log.Warnf("%v. Country data will be missing.", err)
		} else if cfg.GeoIP.CountryPath != "" {
			country = geoip.Country
			defer geoip.Close()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exporter := metrics.NewExporter()
		srv := server.New(database, exporter, time.Duration(cfg.Serve.CacheTTL)*time.Second)
		cycles := &cycleRunner{run: func() {
			runCycle(ctx, cfg, database, country, exporter)
			srv.Invalidate()
		}}

		scheduler := cron.New(cron.WithLogger(cronLogger{}))
		if _, err := scheduler.AddFunc(cfg.Serve.Schedule, cycles.Run); err != nil {
			logger.Log.Fatalf("Invalid schedule %q: %v", cfg.Serve.Schedule, err)
		}
		scheduler.Start()
		logger.Log.Infof("⏰ Collect cycle scheduled: %s", cfg.Serve.Schedule)
		if serveNow {
			cycles.Go()
		}

		httpServer := &http.Server{
			Addr:              cfg.Serve.Listen,
			Handler:           srv.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Log.Infof("🌐 Serving subscriptions on %s", cfg.Serve.Listen)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Errorf("HTTP server failed: %v", err)
				stop()
			}
		}()

		<-ctx.Done()
		logger.Log.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warnf("HTTP shutdown: %v", err)
		}
		<-scheduler.Stop().Done()
		cycles.Wait()
	},
}

// cycleRunner runs at most one collect cycle at a time. Cycles started with
// Go are tracked so shutdown can wait for them before the database closes.
type cycleRunner struct {
	run     func()
	running sync.Mutex
	started sync.WaitGroup
}

// Run executes a cycle unless one is already in flight.
func (c *cycleRunner) Run() {
	if !c.running.TryLock() {
		logger.Log.Warn("Previous collect cycle still running, skipping.")
		return
	}
	defer c.running.Unlock()
	c.run()
}

// Go runs a cycle in the background.
func (c *cycleRunner) Go() {
	c.started.Add(1)
	go func() {
		defer c.started.Done()
		c.Run()
	}()
}

// Wait blocks until background cycles and any cycle in flight have finished.
func (c *cycleRunner) Wait() {
	c.started.Wait()
	c.running.Lock()
	c.running.Unlock()
}

// runCycle is one scheduled pass: every collector, then a prune down to
// max_proxies. Its statistics are logged and fed to the exporter.
func runCycle(ctx context.Context, cfg *config.Config, database *gorm.DB, country db.CountryFunc, exporter *metrics.Exporter) {
	start := time.Now()
	stats := metrics.New()
	collectAll(ctx, cfg, database, stats, country, nil)
	exporter.Observe(stats)

	if cfg.Database.MaxProxies > 0 {
		deleted, err := db.Prune(database, cfg.Database.MaxProxies)
		if err != nil {
			logger.Log.Errorf("Pruning failed: %v", err)
		} else if deleted > 0 {
			logger.Log.Infof("🧹 Pruned %d old proxies.", deleted)
		}
	}
	logger.Log.Infof("✅ Collect cycle finished in %s.", time.Since(start).Round(time.Millisecond))
}

// cronLogger routes scheduler events to the global logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Log.Debugw("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides serve.listen)")
	serveCmd.Flags().BoolVar(&serveNow, "now", false, "Run one collect cycle immediately at startup")
	rootCmd.AddCommand(serveCmd)
}
