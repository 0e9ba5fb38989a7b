package database

import (
	"context"
	"database/sql"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/bikestore/internal/models"
)

// Options configures the connection pool.
type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

var db *gorm.DB

// Connect opens the store database, creating it when missing, and migrates the schema.
// Later calls return the same handle.
func Connect(opts Options) *gorm.DB {
	if db != nil {
		return db
	}

	if err := ensureDatabase(opts.DSN); err != nil {
		log.Fatalf("failed to ensure database: %v", err)
	}

	conn, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		log.Fatalf("failed to access connection pool: %v", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := conn.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Printf("warning: failed to ensure uuid-ossp extension: %v", err)
	}

	if err := migrate(conn); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	db = conn
	return db
}

// Close releases the pool opened by Connect.
func Close() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	db = nil
	return sqlDB.Close()
}

func migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.Brand{},
		&models.BikeModel{},
		&models.Product{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Cart{},
		&models.OTP{},
		&models.Profile{},
		&models.Wishlist{},
		&models.PaymentEvent{},
	); err != nil {
		return err
	}

	// At most one open cart per phone number.
	return conn.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_open_phone
		ON carts (phone_number)
		WHERE status IN ('active', 'validated', 'checkout')`).Error
}

// ensureDatabase connects to the maintenance database of a URL-style DSN and
// creates the target database when it does not exist yet.
func ensureDatabase(dsn string) error {
	parsed, err := url.Parse(dsn)
	if err != nil || (parsed.Scheme != "postgres" && parsed.Scheme != "postgresql") {
		return nil
	}

	name := strings.TrimPrefix(parsed.Path, "/")
	if name == "" || name == "postgres" {
		return nil
	}
	parsed.Path = "/postgres"

	admin, err := sql.Open("postgres", parsed.String())
	if err != nil {
		return err
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var exists bool
	err = admin.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists)
	if err != nil || exists {
		return err
	}

	_, err = admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name))
	return err
}
