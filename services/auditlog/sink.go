package auditlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voltfinance/voltage-launchpad/core/events"
)

// DefaultListLimit caps List when no limit is supplied.
const DefaultListLimit = 100

// Record is one archived event.
type Record struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement" json:"seq"`
	ID         uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"id"`
	Sale       string    `gorm:"index" json:"sale,omitempty"`
	Type       string    `gorm:"index" json:"type"`
	Attributes string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName pins the table name.
func (Record) TableName() string { return "launch_events" }

// Attrs decodes the stored attribute map.
func (r Record) Attrs() map[string]string {
	out := map[string]string{}
	if r.Attributes != "" {
		_ = json.Unmarshal([]byte(r.Attributes), &out)
	}
	return out
}

// Sink archives committed events through gorm. It implements events.Emitter;
// write failures are logged and counted rather than returned.
type Sink struct {
	db     *gorm.DB
	logger *slog.Logger
	nowFn  func() time.Time

	mu       sync.Mutex
	failures int
}

// Dialector picks the gorm driver for dsn: PostgreSQL for postgres URLs and
// SQLite otherwise.
func Dialector(dsn string) gorm.Dialector {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// Open connects to dsn and migrates the archive table.
func Open(dsn string, logger *slog.Logger) (*Sink, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("auditlog: dsn required")
	}
	db, err := gorm.Open(Dialector(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("auditlog: open: %w", err)
	}
	return New(db, logger)
}

// New wraps an existing connection.
func New(db *gorm.DB, logger *slog.Logger) (*Sink, error) {
	if db == nil {
		return nil, errors.New("auditlog: nil db")
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("auditlog: migrate: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{db: db, logger: logger.With("component", "auditlog"), nowFn: time.Now}, nil
}

// SetNowFunc overrides the timestamp source.
func (s *Sink) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.nowFn = now
}

// Emit implements events.Emitter.
func (s *Sink) Emit(evt events.Event) {
	if s == nil || evt == nil {
		return
	}
	payload := events.Materialize(evt)
	attrs, err := json.Marshal(payload.Attributes)
	if err == nil {
		err = s.db.Create(&Record{
			ID:         uuid.New(),
			Sale:       normalize(payload.Attr("sale")),
			Type:       payload.Type,
			Attributes: string(attrs),
			CreatedAt:  s.nowFn().UTC(),
		}).Error
	}
	if err != nil {
		s.mu.Lock()
		s.failures++
		s.mu.Unlock()
		s.logger.Error("archive event", "type", payload.Type, "error", err)
	}
}

// Failures returns the number of events that could not be archived.
func (s *Sink) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// List returns the newest events of sale first.
func (s *Sink) List(sale common.Address, limit int) ([]Record, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	var out []Record
	err := s.db.Where("sale = ?", normalize(sale.Hex())).Order("seq DESC").Limit(limit).Find(&out).Error
	return out, err
}

// Close releases the underlying connection.
func (s *Sink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
