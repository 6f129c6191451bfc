package client

import (
	"fmt"
	"time"

	"travel-storefront/internal/config"
	"travel-storefront/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDBClient opens the local store used by the purchase ledger.
func InitDBClient(ledgerCfg config.Ledger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch ledgerCfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(ledgerCfg.DSN)
	case "mysql":
		dialector = mysql.Open(ledgerCfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported ledger driver %q", ledgerCfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", ledgerCfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if ledgerCfg.Driver == "sqlite" {
		// single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.AutoMigrate(&model.LocalEntry{}); err != nil {
		return nil, fmt.Errorf("migrate local store: %w", err)
	}

	return db, nil
}
