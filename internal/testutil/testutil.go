package testutil

import (
	"fmt"
	"testing"

	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDatabase holds test database connection (in-memory SQLite)
type TestDatabase struct {
	DB  *gorm.DB
	DSN string
}

// TestRedis holds test Redis mock (miniredis)
type TestRedis struct {
	Server *miniredis.Miniredis
	Client *redis.Client
	URL    string
}

// SetupTestDatabase creates an in-memory SQLite database for integration tests
// No Docker required! Fast and isolated.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	// Use in-memory SQLite database (":memory:" means RAM-only)
	dsn := "file::memory:?cache=shared"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// The production models are SQLite-compatible, migrate them directly
	if err := db.AutoMigrate(&models.Person{}, &models.WasteReport{}); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &TestDatabase{
		DB:  db,
		DSN: dsn,
	}
}

// Teardown cleans up the test database (closes connection)
func (td *TestDatabase) Teardown(t *testing.T) {
	sqlDB, err := td.DB.DB()
	if err != nil {
		t.Logf("Warning: Failed to get underlying DB: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}

// SetupTestRedis creates an in-memory Redis mock (miniredis)
// No Docker required! Fast and isolated.
func SetupTestRedis(t *testing.T) *TestRedis {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	return &TestRedis{
		Server: server,
		Client: redis.NewClient(&redis.Options{Addr: server.Addr()}),
		URL:    fmt.Sprintf("redis://%s", server.Addr()),
	}
}

// Teardown cleans up the test Redis mock
func (tr *TestRedis) Teardown(t *testing.T) {
	if err := tr.Client.Close(); err != nil {
		t.Logf("Warning: Failed to close redis client: %v", err)
	}
	tr.Server.Close()
}

// CleanDatabase deletes all records from tables (for test isolation)
func CleanDatabase(t *testing.T, db *gorm.DB) {
	// SQLite doesn't support TRUNCATE
	tables := []string{"waste_reports", "people"}
	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			t.Logf("Warning: Failed to clean table %s: %v", table, err)
		}
	}
}
