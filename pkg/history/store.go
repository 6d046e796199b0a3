// Package history keeps a record of download jobs in a SQLite database.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when no run has the requested ID
var ErrNotFound = errors.New("run not found")

// Status is the recorded outcome of a run
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
)

// Run is one download job
type Run struct {
	ID     string `gorm:"primaryKey;type:varchar(36)"`
	Target string `gorm:"index"`
	Kind   string
	Status Status `gorm:"index"`

	Root       string
	Downloaded int
	Skipped    int
	Failed     int
	Files      int
	Message    string

	StartedAt  time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Duration is how long the run took, or has been running
func (r *Run) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// Stats counts runs by status
type Stats struct {
	Total     int64
	Running   int64
	Completed int64
	Stopped   int64
	Failed    int64
}

// Store persists runs
type Store struct {
	db *gorm.DB
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return &Store{db: db}, nil
}

// Create inserts a new run
func (s *Store) Create(run *Run) error {
	return s.db.Create(run).Error
}

// Update saves every field of run
func (s *Store) Update(run *Run) error {
	return s.db.Save(run).Error
}

// SetCounts records the final counters of a run
func (s *Store) SetCounts(id string, downloaded, skipped, failed int) error {
	res := s.db.Model(&Run{}).Where("id = ?", id).Updates(map[string]interface{}{
		"downloaded": downloaded,
		"skipped":    skipped,
		"failed":     failed,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get finds a run by ID or unique ID prefix
func (s *Store) Get(id string) (*Run, error) {
	var runs []*Run
	if err := s.db.Where("id LIKE ?", id+"%").Limit(2).Find(&runs).Error; err != nil {
		return nil, err
	}
	switch len(runs) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("run ID prefix %q is ambiguous", id)
	}
}

// List returns the most recent runs first. An empty target lists all
// targets; limit <= 0 means no limit.
func (s *Store) List(target string, limit int) ([]*Run, error) {
	var runs []*Run
	query := s.db.Order("started_at DESC")
	if target != "" {
		query = query.Where("target = ?", target)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}

// Stats returns run counts by status
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}
	if err := s.db.Model(&Run{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	var counts []struct {
		Status Status
		Count  int64
	}
	if err := s.db.Model(&Run{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, c := range counts {
		switch c.Status {
		case StatusRunning, StatusPaused:
			stats.Running += c.Count
		case StatusCompleted:
			stats.Completed = c.Count
		case StatusStopped:
			stats.Stopped = c.Count
		case StatusFailed:
			stats.Failed = c.Count
		}
	}
	return stats, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
