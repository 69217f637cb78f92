package database

import (
	"strings"

	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/Baaaki/wastetrack/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Dialector picks postgres for postgres:// URLs and key=value DSNs, sqlite for anything else.
func Dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// Connect opens the database. Driver duplicate-key errors are translated to
// gorm.ErrDuplicatedKey so repositories can report conflicts uniformly.
func Connect(dsn string) (*gorm.DB, error) {
	dialector := Dialector(dsn)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Database connected",
		zap.String("dialect", dialector.Name()),
	)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Person{}, &models.WasteReport{}); err != nil {
		return err
	}

	logger.Log.Info("Database migration completed")
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Log.Warn("Failed to close database", zap.Error(err))
	}
}
