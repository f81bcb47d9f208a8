package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"proxyscraper/internal/collectors"
	"proxyscraper/internal/logger"
)

// URLCollector downloads one page or subscription and hands back its body.
// Subscriptions that are a single base64 blob are decoded first.
type URLCollector struct{}

func (c *URLCollector) Collect(ctx context.Context, config map[string]interface{}) ([]string, error) {
	targetURL := collectors.String(config, "url")
	if targetURL == "" {
		return nil, fmt.Errorf("missing 'url' in collector config")
	}

	client := &http.Client{
		Timeout: time.Duration(collectors.Int(config, "timeout", 120)) * time.Second,
	}

	if proxyStr := collectors.String(config, "_proxy_url"); proxyStr != "" {
		pURL, err := url.Parse(proxyStr)
		if err == nil {
			client.Transport = &http.Transport{
				Proxy: http.ProxyURL(pURL),
			}
			logger.Log.Debugf("HTTP Collector using proxy: %s", proxyStr)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if ua := collectors.String(config, "user_agent"); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	logger.Log.Debugf("Fetching URL: %s", targetURL)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 status code: %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	body := string(bodyBytes)
	if decoded, ok := collectors.DecodeSubscription(body); ok {
		logger.Log.Debugf("Decoded base64 subscription from %s", targetURL)
		return []string{decoded}, nil
	}
	return []string{body}, nil
}

func init() {
	collectors.Register("http", func() collectors.Collector {
		return &URLCollector{}
	})
}
