package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
)

type sourceStat struct {
	name string
	docs int
	err  error
}

// Collector accumulates per-run scrape statistics. It is safe for
// concurrent use.
type Collector struct {
	mu sync.Mutex

	found      map[string]int
	totalFound int

	saved int64

	// Decode failures, by protocol and by cause
	failures      map[string]int
	failureCauses map[string]int
	totalFailures int

	sources []sourceStat
}

func New() *Collector {
	return &Collector{
		found:         make(map[string]int),
		failures:      make(map[string]int),
		failureCauses: make(map[string]int),
	}
}

func (c *Collector) RecordProxies(protocol string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.found[protocol] += n
	c.totalFound += n
}

func (c *Collector) RecordSaved(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.saved += n
}

func (c *Collector) RecordFailure(protocol string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalFailures++
	c.failures[protocol]++
	c.failureCauses[classify(err)]++
}

// RecordSource notes one collector run: how many documents it produced, or
// the error that stopped it.
func (c *Collector) RecordSource(name string, docs int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sources = append(c.sources, sourceStat{name: name, docs: docs, err: err})
}

func classify(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "base64"):
		return "Bad Base64"
	case strings.Contains(msg, "utf-8"):
		return "Not UTF-8"
	case strings.Contains(msg, "query"):
		return "Bad Query"
	case strings.Contains(msg, "share object"):
		return "Bad VMess JSON"
	case strings.Contains(msg, " id: "):
		return "Bad UUID"
	case strings.Contains(msg, "missing"):
		return "Missing Field"
	case strings.Contains(msg, "separator"):
		return "Bad Userinfo"
	}
	return "Other"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Collector) PrintReport(out io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(out, "\n📊 SCRAPE REPORT")
	fmt.Fprintln(out, "────────────────────────────────────────")

	fmt.Fprintln(w, "[ SOURCES ]\t")
	if len(c.sources) == 0 {
		fmt.Fprintln(w, "  (no sources ran)")
	}
	for _, s := range c.sources {
		if s.err != nil {
			fmt.Fprintf(w, "  %s:\tFAILED (%v)\n", s.name, s.err)
			continue
		}
		fmt.Fprintf(w, "  %s:\t%d documents\n", s.name, s.docs)
	}
	fmt.Fprintln(w, "\t")

	fmt.Fprintln(w, "[ PROXIES ]\t")
	for _, k := range sortedKeys(c.found) {
		fmt.Fprintf(w, "  %s:\t%d\n", k, c.found[k])
	}
	fmt.Fprintf(w, "  Total Found:\t%d\n", c.totalFound)
	fmt.Fprintf(w, "  New In Database:\t%d\n", c.saved)
	fmt.Fprintln(w, "\t")

	fmt.Fprintln(w, "[ DECODE FAILURES ]\t")
	fmt.Fprintf(w, "  Total Failures:\t%d\n", c.totalFailures)
	for _, k := range sortedKeys(c.failures) {
		fmt.Fprintf(w, "  %s:\t%d\n", k, c.failures[k])
	}
	for _, k := range sortedKeys(c.failureCauses) {
		fmt.Fprintf(w, "  cause %s:\t%d\n", k, c.failureCauses[k])
	}

	w.Flush()
	fmt.Fprintln(out)
}
