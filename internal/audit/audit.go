// Package audit implements the execution audit log: every request the
// execution service handles is recorded as one row in a gorm-backed
// SQLite store, so the log is queryable instead of append-only JSON
// lines. Schema changes are expressed as golang-migrate migrations (see
// migrations/) rather than gorm AutoMigrate.
package audit

import (
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"codesandbox/internal/errs"
	"codesandbox/internal/logging"
	"codesandbox/internal/types"
)

// Entry is one row of the audit log.
type Entry struct {
	ID          uint `gorm:"primarykey"`
	Timestamp   time.Time
	SandboxID   string `gorm:"index"`
	Language    string
	Status      string
	DurationMS  int64
	MaxRSSBytes int64
	Reason      string
	CodeHash    string `gorm:"index"`
}

func (Entry) TableName() string { return "audit_entries" }

// Log is the gorm handle over the audit database.
type Log struct {
	db *gorm.DB
}

// Open connects to the SQLite file at path (created if absent). Callers
// are expected to have already applied migrations (see
// internal/audit/migrations and NewMigrationRunner(...).Up() in
// cmd/sandboxd) before
// opening for writes; Open itself never mutates schema.
func Open(path string) (*Log, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, errs.Wrap(errs.KindSystem, err, "open audit database")
	}
	return &Log{db: db}, nil
}

// Record appends one audit entry. Failures are logged, never returned:
// an audit-log write failure must not fail the execution it's recording.
func (l *Log) Record(sandboxID string, lang types.Language, result *types.ExecutionResult, duration time.Duration, codeHash string) {
	entry := Entry{
		Timestamp:   time.Now(),
		SandboxID:   sandboxID,
		Language:    string(lang),
		Status:      string(result.Status),
		DurationMS:  duration.Milliseconds(),
		MaxRSSBytes: result.Stats.MaxRSSBytes,
		Reason:      result.Reason,
		CodeHash:    codeHash,
	}
	if err := l.db.Create(&entry).Error; err != nil {
		logging.L().Sugar().Warnw("audit log write failed", "sandbox_id", sandboxID, "error", err)
	}
}

// Recent returns the most recent n entries, newest first, for operator
// inspection endpoints.
func (l *Log) Recent(n int) ([]Entry, error) {
	var entries []Entry
	if err := l.db.Order("id desc").Limit(n).Find(&entries).Error; err != nil {
		return nil, errs.Wrap(errs.KindSystem, err, "query audit log")
	}
	return entries, nil
}

// Close releases the underlying database connection.
func (l *Log) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return errs.Wrap(errs.KindSystem, err, "obtain sql.DB for close")
	}
	return sqlDB.Close()
}
