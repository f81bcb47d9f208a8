package xray

import (
	"encoding/json"
	"fmt"
	"os"

	"proxyscraper/internal/logger"
	"proxyscraper/internal/scraper"

	"github.com/xtls/xray-core/infra/conf"
)

// Validate builds the outbound the way Xray would at startup and reports
// the first problem. Xray's own log noise is suppressed meanwhile.
func Validate(out *conf.OutboundDetourConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xray config panic: %v", r)
		}
	}()

	restore := muteLogs()
	defer restore()
	_, err = out.Build()
	return err
}

// Skipped records a descriptor that could not be exported.
type Skipped struct {
	Proxy scraper.Proxy
	Err   error
}

// Document is the subset of an Xray config file this tool writes.
type Document struct {
	Outbounds []conf.OutboundDetourConfig `json:"outbounds"`
}

// Export converts and validates every descriptor. Valid ones become tagged
// outbounds "<protocol>-<n>", numbered in input order; the rest are
// returned with the reason.
func Export(proxies []scraper.Proxy) (*Document, []Skipped) {
	doc := &Document{}
	var skipped []Skipped

	for i, p := range proxies {
		out, err := ToOutbound(p)
		if err == nil {
			err = Validate(out)
		}
		if err != nil {
			logger.Log.Debugf("Skipping %s: %v", p.Protocol(), err)
			skipped = append(skipped, Skipped{Proxy: p, Err: err})
			continue
		}

		out.Tag = fmt.Sprintf("%s-%d", p.Protocol(), i)
		doc.Outbounds = append(doc.Outbounds, *out)
	}
	return doc, skipped
}

// JSON renders the document as an indented Xray config fragment.
func (d *Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func muteLogs() func() {
	origStdout := os.Stdout
	origStderr := os.Stderr

	devNull, _ := os.Open(os.DevNull)
	if devNull != nil {
		os.Stdout = devNull
		os.Stderr = devNull
	}

	return func() {
		os.Stdout = origStdout
		os.Stderr = origStderr
		if devNull != nil {
			devNull.Close()
		}
	}
}
