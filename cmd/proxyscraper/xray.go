package main

import (
	"os"

	"proxyscraper/internal/logger"
	"proxyscraper/internal/scraper"
	"proxyscraper/internal/xray"

	"github.com/spf13/cobra"
)

var xrayOutput string

var xrayCmd = &cobra.Command{
	Use:   "xray [files...]",
	Short: "Convert found proxies into Xray outbounds",
	Long: `Finds share links like 'extract' does and writes them as an Xray
config fragment ({"outbounds": [...]}). Every outbound is validated with
Xray's own config builder; links it rejects are reported and left out.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			args = []string{"-"}
		}

		var proxies []scraper.Proxy
		for _, name := range args {
			text, err := readInput(name)
			if err != nil {
				logger.Log.Errorf("Skipping %s: %v", name, err)
				continue
			}
			proxies = append(proxies, scraper.ScrapeAll(text)...)
		}

		doc, skipped := xray.Export(proxies)
		for _, s := range skipped {
			logger.Log.Warnf("Left out %s: %v", s.Proxy.URI(), s.Err)
		}

		b, err := doc.JSON()
		if err != nil {
			logger.Log.Fatalf("Encoding config failed: %v", err)
		}
		b = append(b, '\n')

		if xrayOutput == "" || xrayOutput == "-" {
			_, _ = os.Stdout.Write(b)
			return
		}
		if err := os.WriteFile(xrayOutput, b, 0644); err != nil {
			logger.Log.Fatalf("Writing %s failed: %v", xrayOutput, err)
		}
		logger.Log.Infof("✅ Wrote %d outbounds to %s", len(doc.Outbounds), xrayOutput)
	},
}

func init() {
	xrayCmd.Flags().StringVarP(&xrayOutput, "output", "o", "", "Write the config to this file instead of stdout")
	rootCmd.AddCommand(xrayCmd)
}
