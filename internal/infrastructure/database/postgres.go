package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/config"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig, debug bool, log *zap.Logger) (*gorm.DB, error) {
	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// unique violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("connected to postgres", zap.String("host", cfg.Host), zap.String("database", cfg.Name))
	return db, nil
}

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")

	err := db.AutoMigrate(
		// Business setup
		&entity.Business{},
		&entity.AvailableCurrency{},
		&entity.Area{},
		&entity.EconomicCycle{},

		// Catalog and stock
		&entity.Product{},
		&entity.ProductVariation{},
		&entity.StockAreaProduct{},
		&entity.StockMovement{},
		&entity.Coupon{},

		// Orders
		&entity.Resource{},
		&entity.Order{},
		&entity.SelledProduct{},
		&entity.SelledProductAddon{},
		&entity.CurrencyPayment{},
		&entity.OrderCoupon{},
		&entity.CashRegisterOperation{},
		&entity.ProductionTicket{},
		&entity.Dispatch{},

		// System
		&entity.IdempotencyKey{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("database migrations completed")
	return nil
}

// SeedDefaultData creates a demo business with a sales area, a warehouse and an open
// economic cycle when the database holds no business yet
func SeedDefaultData(db *gorm.DB, log *zap.Logger) error {
	var count int64
	if err := db.Model(&entity.Business{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	log.Info("seeding demo business")

	return db.Transaction(func(tx *gorm.DB) error {
		business := entity.Business{
			Name:         "Demo Business",
			MainCurrency: "USD",
			Currencies: []entity.AvailableCurrency{
				{Code: "USD", ExchangeRate: decimal.NewFromInt(1), IsMain: true},
				{Code: "EUR", ExchangeRate: decimal.RequireFromString("1.1")},
			},
		}
		if err := tx.Create(&business).Error; err != nil {
			return fmt.Errorf("failed to create demo business: %w", err)
		}

		warehouse := entity.Area{BusinessID: business.ID, Name: "Warehouse", Type: enum.AreaTypeStock, IsActive: true}
		if err := tx.Create(&warehouse).Error; err != nil {
			return err
		}
		sale := entity.Area{BusinessID: business.ID, Name: "Counter", Type: enum.AreaTypeSale, StockAreaID: &warehouse.ID, IsActive: true}
		if err := tx.Create(&sale).Error; err != nil {
			return err
		}

		cycle := entity.EconomicCycle{BusinessID: business.ID, OpenDate: time.Now(), IsActive: true, OpenedByID: uuid.Nil}
		if err := tx.Create(&cycle).Error; err != nil {
			return err
		}

		log.Info("demo business seeded",
			zap.String("business_id", business.ID.String()),
			zap.String("sale_area_id", sale.ID.String()))
		return nil
	})
}
