package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"proxyscraper/internal/config"
	"proxyscraper/internal/db"
	"proxyscraper/internal/logger"
	"proxyscraper/internal/model"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database statistics",
	Long:  `Displays a dashboard of the current database state: proxy counts, file sizes, and breakdowns by protocol, source and country.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			logger.Log.Fatalf("Error loading config: %v", err)
		}

		database, err := db.Connect(cfg.Database.Path)
		if err != nil {
			logger.Log.Fatalf("Error connecting to DB: %v", err)
		}
		defer db.Close(database)

		if err := printStatus(os.Stdout, database, cfg.Database.Path); err != nil {
			logger.Log.Fatalf("Error reading DB: %v", err)
		}
	},
}

func printStatus(out io.Writer, database *gorm.DB, path string) error {
	var totalProxies int64
	if err := database.Model(&model.Proxy{}).Count(&totalProxies).Error; err != nil {
		return err
	}
	protocols, err := db.CountBy(database, "protocol", 0)
	if err != nil {
		return err
	}
	sources, err := db.CountBy(database, "source", 0)
	if err != nil {
		return err
	}
	countries, err := db.CountBy(database, "country", 5)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(out, "\n📊 PROXYSCRAPER STATUS")
	fmt.Fprintln(out, "────────────────────────────────────────")

	fmt.Fprintln(w, "[ SYSTEM ]\t")
	fmt.Fprintf(w, "  Database Path:\t%s\n", path)
	fmt.Fprintf(w, "  DB Size:\t%s\n", formatBytes(getFileSize(path)))
	if walSize := getFileSize(path + "-wal"); walSize > 0 {
		fmt.Fprintf(w, "  WAL Size:\t%s (pending checkpoint)\n", formatBytes(walSize))
	}
	fmt.Fprintf(w, "  Total Proxies:\t%d\n", totalProxies)
	fmt.Fprintln(w, "\t")

	fmt.Fprintln(w, "[ PROTOCOLS ]\t")
	for _, c := range protocols {
		fmt.Fprintf(w, "  %s:\t%d\n", c.Name, c.Count)
	}
	fmt.Fprintln(w, "\t")

	fmt.Fprintln(w, "[ SOURCES ]\t")
	for _, c := range sources {
		fmt.Fprintf(w, "  %s:\t%d\n", c.Name, c.Count)
	}
	fmt.Fprintln(w, "\t")

	fmt.Fprintln(w, "[ TOP LOCATIONS ]\t")
	if len(countries) == 0 {
		fmt.Fprintln(w, "  (no country data)")
	}
	for _, c := range countries {
		fmt.Fprintf(w, "  %s %s:\t%d\n", getFlagEmoji(c.Name), c.Name, c.Count)
	}

	return w.Flush()
}

// Helpers

func getFileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func getFlagEmoji(countryCode string) string {
	if len(countryCode) != 2 {
		return "🌐"
	}
	countryCode = strings.ToUpper(countryCode)
	return string(rune(countryCode[0])+127397) + string(rune(countryCode[1])+127397)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
