package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"

	"proxyscraper/internal/collectors"
	"proxyscraper/internal/config"
	"proxyscraper/internal/db"
	"proxyscraper/internal/geoip"
	"proxyscraper/internal/logger"
	"proxyscraper/internal/metrics"
	"proxyscraper/internal/scraper"

	"github.com/alitto/pond/v2"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var collectParams map[string]string

var collectCmd = &cobra.Command{
	Use:   "collect [collector_names...]",
	Short: "Run collectors and store the proxies found in their documents",
	Long:  `Run all collectors defined in config, or specify specific ones by name. Use --param to override configuration parameters.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			logger.Log.Fatalf("Error loading config: %v", err)
		}

		cfg.FilterCollectors(args)
		if len(cfg.Collectors) == 0 {
			logger.Log.Warn("No collectors matched the provided names.")
			return
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		stats := metrics.New()
		bar := progressbar.NewOptions(len(cfg.Collectors),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(15),
			progressbar.OptionSetDescription("[cyan]Collecting...[reset]"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)

		collectAll(ctx, cfg, database, stats, country, func() { _ = bar.Add(1) })
		_ = bar.Finish()

		stats.PrintReport(os.Stdout)
	},
}

// collectAll runs the configured collectors on a pool of cfg.Workers and
// ingests what they return. Documents are stored one source at a time.
// progress, when set, is called as each collector finishes.
func collectAll(ctx context.Context, cfg *config.Config, database *gorm.DB, stats *metrics.Collector, country db.CountryFunc, progress func()) {
	var store sync.Mutex
	pool := pond.NewPool(cfg.Workers)
	for _, cCfg := range cfg.Collectors {
		cCfg.Params = config.ApplyOverrides(cCfg.Params, collectParams)
		if cfg.ProxyURL != "" && !noProxy {
			cCfg.Params["_proxy_url"] = cfg.ProxyURL
		}
		pool.Submit(func() {
			if progress != nil {
				defer progress()
			}
			if ctx.Err() != nil {
				return
			}
			runCollector(ctx, database, &store, cCfg, stats, country)
		})
	}
	pool.StopAndWait()
}

func runCollector(ctx context.Context, database *gorm.DB, store *sync.Mutex, cCfg config.CollectorConfig, stats *metrics.Collector, country db.CountryFunc) {
	logger.Log.Infof("🏃 Running collector: %s (%s)...", cCfg.Name, cCfg.Type)

	collector, err := collectors.Get(cCfg.Type)
	if err != nil {
		logger.Log.Warnf("Skipping: %v", err)
		stats.RecordSource(cCfg.Name, 0, err)
		return
	}

	docs, err := collector.Collect(ctx, cCfg.Params)
	stats.RecordSource(cCfg.Name, len(docs), err)
	if err != nil {
		logger.Log.Errorf("Error running collector %s: %v", cCfg.Name, err)
		return
	}

	store.Lock()
	inserted, err := ingest(database, cCfg.Name, docs, stats, country)
	store.Unlock()
	if err != nil {
		logger.Log.Errorf("Error saving proxies from %s: %v", cCfg.Name, err)
		return
	}
	logger.Log.Infof("✅ Collector %s finished. %d new proxies.", cCfg.Name, inserted)
}

// ingest scrapes every document, records what was found and what failed to
// decode, and stores the descriptors under source.
func ingest(database *gorm.DB, source string, docs []string, stats *metrics.Collector, country db.CountryFunc) (int64, error) {
	var found []scraper.Proxy
	for _, doc := range docs {
		for _, cand := range scraper.Inspect(doc) {
			if cand.Err != nil {
				protocol := "unknown"
				var derr *scraper.DecodeError
				if errors.As(cand.Err, &derr) {
					protocol = derr.Protocol
				}
				logger.Log.Debugf("Dropped candidate: %v", cand.Err)
				stats.RecordFailure(protocol, cand.Err)
				continue
			}
			found = append(found, cand.Proxy)
		}
	}

	perProtocol := make(map[string]int)
	for _, p := range found {
		perProtocol[p.Protocol()]++
	}
	for protocol, n := range perProtocol {
		stats.RecordProxies(protocol, n)
	}

	inserted, err := db.SaveProxies(database, source, found, country)
	if err != nil {
		return 0, err
	}
	stats.RecordSaved(inserted)
	return inserted, nil
}

func init() {
	collectCmd.Flags().StringToStringVarP(&collectParams, "param", "p", nil, "Override collector params")
	rootCmd.AddCommand(collectCmd)
}
