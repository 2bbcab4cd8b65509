package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/internship-allocator-go/pkg/config"
)

// APIUsage represents the api_usage table: one row per client per day.
// Only counters are kept, never the allocation itself.
type APIUsage struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	Client           string `gorm:"uniqueIndex:idx_client_date;not null" json:"client"`
	Date             string `gorm:"uniqueIndex:idx_client_date;not null" json:"date"`
	RequestCount     int    `gorm:"default:0" json:"request_count"`
	TotalCandidates  int    `gorm:"default:0" json:"total_candidates"`
	TotalInternships int    `gorm:"default:0" json:"total_internships"`
	TotalAllocated   int    `gorm:"default:0" json:"total_allocated"`
}

// Usage is the per-request increment applied by RecordUsage
type Usage struct {
	Candidates  int
	Internships int
	Allocated   int
}

// InitDB opens postgres when cfg.URL is set and sqlite at cfg.Path
// otherwise, then migrates the schema.
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if cfg.URL != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.URL,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		dbPath := cfg.Path
		if dbPath == "" {
			dbPath = "allocator_usage.db"
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(&APIUsage{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}

// RecordUsage adds u to the client's counters for the day of now
func RecordUsage(db *gorm.DB, client string, now time.Time, u Usage) error {
	today := now.Format("2006-01-02")

	// Use OnConflict for a single-query upsert (supported by both Postgres and SQLite)
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":     gorm.Expr("request_count + ?", 1),
			"total_candidates":  gorm.Expr("total_candidates + ?", u.Candidates),
			"total_internships": gorm.Expr("total_internships + ?", u.Internships),
			"total_allocated":   gorm.Expr("total_allocated + ?", u.Allocated),
		}),
	}).Create(&APIUsage{
		Client:           client,
		Date:             today,
		RequestCount:     1,
		TotalCandidates:  u.Candidates,
		TotalInternships: u.Internships,
		TotalAllocated:   u.Allocated,
	}).Error
}

// ListUsage returns the client's most recent days, newest first
func ListUsage(db *gorm.DB, client string, limit int) ([]APIUsage, error) {
	var usage []APIUsage
	err := db.Where("client = ?", client).Order("date desc").Limit(limit).Find(&usage).Error
	return usage, err
}
