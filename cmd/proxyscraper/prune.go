package main

import (
	"strconv"

	"proxyscraper/internal/config"
	"proxyscraper/internal/db"
	"proxyscraper/internal/logger"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune [limit]",
	Short: "Shrink the database to a specific size",
	Long: `Removes the oldest proxies until the total count matches the target limit.
If no limit is provided, the 'max_proxies' value from config.yaml is used.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			logger.Log.Fatalf("Error loading config: %v", err)
		}

		targetLimit := cfg.Database.MaxProxies
		if len(args) > 0 {
			val, err := strconv.Atoi(args[0])
			if err != nil {
				logger.Log.Fatalf("Invalid limit argument: %v", err)
			}
			if val > 0 {
				targetLimit = val
			}
			logger.Log.Infof("🎯 Pruning target manually set to: %d", targetLimit)
		}

		if targetLimit <= 0 {
			targetLimit = 10000
		}

		database, err := db.Connect(cfg.Database.Path)
		if err != nil {
			logger.Log.Fatalf("Error connecting to DB: %v", err)
		}
		defer db.Close(database)

		deleted, err := db.Prune(database, targetLimit)
		if err != nil {
			logger.Log.Errorf("Pruning failed: %v", err)
			return
		}
		logger.Log.Infof("✅ Database maintenance complete. Removed %d proxies.", deleted)
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}
