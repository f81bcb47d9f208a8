package publishers

import (
	"encoding/base64"
	"strings"

	"proxyscraper/internal/logger"
	"proxyscraper/internal/model"
	"proxyscraper/internal/scraper"
)

// GenerateSubscriptionPayload renders stored records as a subscription: one
// canonical link per line, in record order, duplicates removed. Records that
// no longer parse are dropped. With "base64: true" the whole list is encoded;
// "limit" caps the number of links.
func GenerateSubscriptionPayload(records []model.Proxy, config map[string]interface{}) (string, error) {
	limit, _ := config["limit"].(int)

	seen := make(map[string]bool, len(records))
	var lines []string
	for _, rec := range records {
		if limit > 0 && len(lines) >= limit {
			break
		}
		p, err := scraper.Parse(rec.URI)
		if err != nil {
			logger.Log.Debugf("⚠️ Publisher dropped record %d (%s): %v", rec.ID, rec.Protocol, err)
			continue
		}
		uri := p.URI()
		if seen[uri] {
			continue
		}
		seen[uri] = true
		lines = append(lines, uri)
	}

	finalText := strings.Join(lines, "\n")

	useBase64, _ := config["base64"].(bool)
	if useBase64 {
		return base64.StdEncoding.EncodeToString([]byte(finalText)), nil
	}
	return finalText, nil
}
