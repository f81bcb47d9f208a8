package main

import (
	"proxyscraper/internal/config"
	"proxyscraper/internal/db"
	"proxyscraper/internal/logger"
	"proxyscraper/internal/publishers"

	"github.com/spf13/cobra"
)

var publishParams map[string]string

var publishCmd = &cobra.Command{
	Use:   "publish [publisher_names...]",
	Short: "Publish stored proxies as subscriptions",
	Long:  `Run all publishers or specific ones. Use --param to override publisher configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			logger.Log.Fatalf("Error loading config: %v", err)
		}

		cfg.FilterPublishers(args)
		if len(cfg.Publishers) == 0 {
			logger.Log.Warn("No publishers matched.")
			return
		}

		database, err := db.Connect(cfg.Database.Path)
		if err != nil {
			logger.Log.Fatalf("Error connecting to DB: %v", err)
		}
		defer db.Close(database)

		for _, pubCfg := range cfg.Publishers {
			logger.Log.Infof("📨 Running Publisher: %s (%s)...", pubCfg.Name, pubCfg.Type)

			plugin, err := publishers.Get(pubCfg.Type)
			if err != nil {
				logger.Log.Warnf("Plugin not found: %v", err)
				continue
			}

			pubCfg.Params = config.ApplyOverrides(pubCfg.Params, publishParams)
			if cfg.ProxyURL != "" && !noProxy {
				pubCfg.Params["_proxy_url"] = cfg.ProxyURL
			}

			records, err := db.LoadProxies(database, pubCfg.Protocols)
			if err != nil {
				logger.Log.Errorf("Loading proxies failed: %v", err)
				continue
			}

			if err := plugin.Publish(records, pubCfg.Params); err != nil {
				logger.Log.Errorf("Publish failed: %v", err)
			} else {
				logger.Log.Infof("✅ Published %d records.", len(records))
			}
		}
	},
}

func init() {
	publishCmd.Flags().StringToStringVarP(&publishParams, "param", "p", nil, "Override publisher params (e.g. -p output=sub.txt)")
	rootCmd.AddCommand(publishCmd)
}
