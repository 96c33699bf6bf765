package database

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/utils"
)

// Connect opens the configured database and runs migrations.
func Connect(driver, dsn string, log *zap.Logger) (*gorm.DB, error) {
	if driver == "postgres" {
		if err := ensureDatabase(dsn); err != nil {
			return nil, fmt.Errorf("ensure database: %w", err)
		}
	}

	conn, err := Open(driver, dsn, logger.Default.LogMode(logger.Warn))
	if err != nil {
		return nil, err
	}

	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	log.Info("database ready", zap.String("driver", driver))
	return conn, nil
}

// Open connects without migrating. Unique-constraint violations are
// translated to gorm.ErrDuplicatedKey.
func Open(driver, dsn string, gormLogger logger.Interface) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite" {
		// A single connection keeps in-memory databases shared and serializes writers.
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return conn, nil
}

// Migrate creates or updates every table.
func Migrate(conn *gorm.DB) error {
	migrations := []interface{}{
		&models.User{},
		&models.Product{},
		&models.Service{},
		&models.Barber{},
		&models.Voucher{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Appointment{},
		&models.QueueEntry{},
		&models.Expense{},
	}

	for _, migration := range migrations {
		if err := conn.AutoMigrate(migration); err != nil {
			return err
		}
	}

	return nil
}

// SeedAdmin makes sure an admin account exists for the given phone. An
// existing user with that phone is promoted; the password is left untouched.
func SeedAdmin(conn *gorm.DB, name, phone, password string) (*models.User, error) {
	if phone == "" || password == "" {
		return nil, nil
	}

	var user models.User
	err := conn.Where("phone = ?", phone).First(&user).Error
	if err == nil {
		if user.Role != models.RoleAdmin {
			if err := conn.Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
				return nil, err
			}
			user.Role = models.RoleAdmin
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user = models.User{
		Name:         name,
		Phone:        phone,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := conn.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func ensureDatabase(dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return err
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return nil
	}

	parsed.Path = "/postgres"
	masterDSN := parsed.String()

	sqlDB, err := sql.Open("postgres", masterDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	var exists bool
	if err := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return err
	}

	if exists {
		return nil
	}

	_, err = sqlDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	return err
}
