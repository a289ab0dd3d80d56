package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fleetwatch/fleetwatch/internal/models"
)

// ErrNotInitialized is returned by every query and insert before a successful
// Init.
var ErrNotInitialized = errors.New("sample store not initialized")

// timeLayout is the wall-clock format used at the store boundary.
const timeLayout = "2006-01-02 15:04:05"

// FormatTime renders a timestamp as local wall-clock "YYYY-MM-DD HH:MM:SS".
func FormatTime(t time.Time) string {
	return t.Local().Format(timeLayout)
}

// ParseTime is the inverse of FormatTime.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, time.Local)
}

// Store owns the backend connection. A single mutex serializes every
// operation against it, and the underlying pool is capped at one connection,
// so backend access is fully serial.
type Store struct {
	mu sync.Mutex
	db *gorm.DB
}

func New() *Store {
	return &Store{}
}

// Init opens the MySQL connection and migrates the schema. Idempotent: a
// second call on an initialized store is a no-op.
func (s *Store) Init(host, port, user, password, database string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, database)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.ServerPerformance{},
		&models.ServerNetDetail{},
		&models.ServerSoftIrqDetail{},
		&models.ServerMemDetail{},
		&models.ServerDiskDetail{},
		&models.ServerCPUCoreDetail{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	s.db = db
	slog.Info("Sample store connected", "host", host, "db", database)
	return nil
}

// Close releases the connection. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	s.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Initialized reports whether Init has succeeded.
func (s *Store) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

// Writes are best-effort and independent: a failed row is the caller's to
// log, never a reason to abort the rest of the ingest fan-out.

func (s *Store) InsertPerformance(row *models.ServerPerformance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotInitialized
	}
	if err := s.db.Create(row).Error; err != nil {
		return fmt.Errorf("insert performance row: %w", err)
	}
	return nil
}

func (s *Store) InsertNetDetail(row *models.ServerNetDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotInitialized
	}
	if err := s.db.Create(row).Error; err != nil {
		return fmt.Errorf("insert net detail row: %w", err)
	}
	return nil
}

func (s *Store) InsertSoftIrqDetail(row *models.ServerSoftIrqDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotInitialized
	}
	if err := s.db.Create(row).Error; err != nil {
		return fmt.Errorf("insert softirq detail row: %w", err)
	}
	return nil
}

func (s *Store) InsertMemDetail(row *models.ServerMemDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotInitialized
	}
	if err := s.db.Create(row).Error; err != nil {
		return fmt.Errorf("insert mem detail row: %w", err)
	}
	return nil
}

func (s *Store) InsertDiskDetail(row *models.ServerDiskDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotInitialized
	}
	if err := s.db.Create(row).Error; err != nil {
		return fmt.Errorf("insert disk detail row: %w", err)
	}
	return nil
}

func (s *Store) InsertCPUCoreDetail(row *models.ServerCPUCoreDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotInitialized
	}
	if err := s.db.Create(row).Error; err != nil {
		return fmt.Errorf("insert cpu core detail row: %w", err)
	}
	return nil
}

// normalizePaging coerces out-of-range pagination to the defaults.
func normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}
	return page, pageSize
}
