package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"proxyscraper/internal/logger"
	"proxyscraper/internal/scraper"

	"github.com/spf13/cobra"
)

var (
	extractProtocols []string
	extractFormat    string
	extractFailures  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Print the proxies found in files or stdin",
	Long: `Reads each file (or stdin when none is given, or for "-"), finds every
supported share link and prints its canonical form, one per line.
With --format json each line is {"protocol": ..., "proxy": {...}}.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			args = []string{"-"}
		}

		out := bufio.NewWriter(os.Stdout)
		defer out.Flush()

		for _, name := range args {
			text, err := readInput(name)
			if err != nil {
				logger.Log.Errorf("Skipping %s: %v", name, err)
				continue
			}
			if err := extract(out, text, extractProtocols, extractFormat, extractFailures); err != nil {
				logger.Log.Fatalf("Extract failed: %v", err)
			}
		}
	},
}

func readInput(name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(name)
	return string(b), err
}

type extractRecord struct {
	Protocol string        `json:"protocol"`
	Proxy    scraper.Proxy `json:"proxy"`
}

// extract writes the descriptors found in text. protocols, when set,
// restricts and orders the codecs that run.
func extract(w io.Writer, text string, protocols []string, format string, reportFailures bool) error {
	if format != "uri" && format != "json" {
		return fmt.Errorf("unknown format %q (want uri or json)", format)
	}

	var found []scraper.Proxy
	if len(protocols) == 0 {
		found = scraper.ScrapeAll(text)
	}
	for _, protocol := range protocols {
		ps, err := scraper.ScrapeProtocol(protocol, text)
		if err != nil {
			return err
		}
		found = append(found, ps...)
	}

	if reportFailures {
		for _, cand := range scraper.Inspect(text) {
			var derr *scraper.DecodeError
			if errors.As(cand.Err, &derr) {
				logger.Log.Warn(derr.Error())
			}
		}
	}

	for _, p := range found {
		if format == "uri" {
			if _, err := fmt.Fprintln(w, p.URI()); err != nil {
				return err
			}
			continue
		}
		b, err := json.Marshal(extractRecord{Protocol: p.Protocol(), Proxy: p})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(b)); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	extractCmd.Flags().StringSliceVar(&extractProtocols, "protocol", nil, "Only extract these protocols ("+fmt.Sprint(scraper.Protocols())+")")
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "uri", "Output format: uri or json")
	extractCmd.Flags().BoolVar(&extractFailures, "failures", false, "Log links that matched a protocol but failed to decode")
	rootCmd.AddCommand(extractCmd)
}
