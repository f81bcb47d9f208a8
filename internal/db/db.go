package db

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"proxyscraper/internal/model"
	"proxyscraper/internal/scraper"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

func Connect(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func Close(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Proxy{})
}

// Hash identifies a descriptor by its canonical link.
func Hash(p scraper.Proxy) string {
	sum := sha256.Sum256([]byte(p.Protocol() + "\x00" + p.URI()))
	return hex.EncodeToString(sum[:])
}

// CountryFunc maps a host to an ISO country code, or "" when unknown.
type CountryFunc func(host string) string

// SaveProxies stores descriptors found in source. Descriptors already in the
// database are left untouched; the number of new rows is returned.
func SaveProxies(db *gorm.DB, source string, proxies []scraper.Proxy, country CountryFunc) (int64, error) {
	now := time.Now()
	seen := make(map[string]bool, len(proxies))
	batch := make([]model.Proxy, 0, len(proxies))
	for _, p := range proxies {
		hash := Hash(p)
		if seen[hash] {
			continue
		}
		seen[hash] = true

		host, port := scraper.Endpoint(p)
		rec := model.Proxy{
			Hash:      hash,
			Protocol:  p.Protocol(),
			URI:       p.URI(),
			Source:    source,
			CreatedAt: now,
			Host:      host,
			Port:      int(port),
		}
		if country != nil {
			rec.Country = country(host)
		}
		batch = append(batch, rec)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}},
		DoNothing: true,
	}).CreateInBatches(batch, 500)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to save proxies: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// LoadProxies returns stored records in insertion order, limited to the given
// protocols when any are named.
func LoadProxies(db *gorm.DB, protocols []string) ([]model.Proxy, error) {
	q := db.Model(&model.Proxy{}).Order("id asc")
	if len(protocols) > 0 {
		q = q.Where("protocol IN ?", protocols)
	}
	var records []model.Proxy
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load proxies: %w", err)
	}
	return records, nil
}

// Prune deletes the oldest records until at most limit remain.
func Prune(db *gorm.DB, limit int) (int64, error) {
	if limit < 0 {
		return 0, fmt.Errorf("invalid limit %d", limit)
	}
	var total int64
	if err := db.Model(&model.Proxy{}).Count(&total).Error; err != nil {
		return 0, err
	}
	excess := total - int64(limit)
	if excess <= 0 {
		return 0, nil
	}

	oldest := db.Model(&model.Proxy{}).
		Select("id").
		Order("created_at asc, id asc").
		Limit(int(excess))
	result := db.Where("id IN (?)", oldest).Delete(&model.Proxy{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Count is one row of a grouped tally.
type Count struct {
	Name  string
	Count int64
}

// CountBy tallies records by column, largest groups first. Empty values are
// skipped and limit <= 0 means no limit.
func CountBy(db *gorm.DB, column string, limit int) ([]Count, error) {
	switch column {
	case "protocol", "source", "country":
	default:
		return nil, fmt.Errorf("cannot group by %q", column)
	}
	q := db.Model(&model.Proxy{}).
		Select(column + " as name, count(*) as count").
		Where(column + " != ''").
		Group(column).
		Order("count desc, name asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []Count
	if err := q.Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
