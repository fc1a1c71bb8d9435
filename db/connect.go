package db

import (
	"strings"
	"time"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/roi"
	"github.com/Fi44er/roi_ledger/utils"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Error),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// ConnectDb opens postgres, or a local sqlite file when url starts with
// sqlite://.
func ConnectDb(url string, log *utils.Logger) (*gorm.DB, error) {
	if strings.HasPrefix(url, sqlitePrefix) {
		return ConnectSqlite(strings.TrimPrefix(url, sqlitePrefix), log)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  url,
		PreferSimpleProtocol: true,
	}), gormConfig())

	if err != nil {
		return nil, err
	}

	log.Info("✅ Database connection successfully")

	log.Info("📦 Setting database connection pool...")
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetMaxOpenConns(200)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// ConnectSqlite is used for local runs and tests. sqlite has a single writer,
// so the pool is pinned to one connection.
func ConnectSqlite(path string, log *utils.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), gormConfig())
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	log.Infof("✅ sqlite database opened at %s", path)
	return db, nil
}

func Migrate(db *gorm.DB, trigger bool, log *utils.Logger) error {
	if trigger {
		log.Info("📦 Migrating database...")
		models := []interface{}{
			&models.User{},
			&models.Wallet{},
			&models.Transaction{},
			&roi.Position{},
		}

		if err := db.AutoMigrate(models...); err != nil {
			log.Errorf("✖ Failed to migrate database: %v", err)
			return err
		}
	}

	log.Info("✅ Database migrated")
	return nil
}
