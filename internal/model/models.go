package model

import (
	"time"
)

// Proxy is a stored descriptor. URI is always the canonical form produced by
// the scraper, so Hash identifies a server configuration regardless of how
// the link was originally written.
type Proxy struct {
	ID        uint   `gorm:"primaryKey"`
	Hash      string `gorm:"uniqueIndex"`
	Protocol  string `gorm:"index"`
	URI       string
	Source    string `gorm:"index"`
	CreatedAt time.Time

	// Entry point, copied from the descriptor for reporting.
	Host    string
	Port    int
	Country string
}
