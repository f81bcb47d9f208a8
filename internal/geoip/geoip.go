package geoip

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

var (
	mu            sync.RWMutex
	countryReader *geoip2.Reader
)

// Init loads the country MMDB. An empty path leaves tagging disabled.
func Init(countryPath string) error {
	if countryPath == "" {
		return nil
	}
	r, err := geoip2.Open(countryPath)
	if err != nil {
		return fmt.Errorf("failed to open Country DB at %s: %w", countryPath, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if countryReader != nil {
		countryReader.Close()
	}
	countryReader = r
	return nil
}

// Country returns the ISO code for an IP-literal host. Domain names, and any
// host when no database is loaded, yield "".
func Country(host string) string {
	ip := net.ParseIP(strings.Trim(host, "[]"))
	if ip == nil {
		return ""
	}

	mu.RLock()
	defer mu.RUnlock()
	if countryReader == nil {
		return ""
	}
	c, err := countryReader.Country(ip)
	if err != nil {
		return ""
	}
	return c.Country.IsoCode
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if countryReader != nil {
		countryReader.Close()
		countryReader = nil
	}
}
