package database

import (
	"fmt"
	"os"

	"socialfeed/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Supported values for Config.Driver
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds database configuration
type Config struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
	LogQueries bool
}

// LoadConfig loads database configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Driver:     getEnv("DB_DRIVER", DriverPostgres),
		Host:       getEnv("DB_HOST", "localhost"),
		Port:       getEnv("DB_PORT", "5432"),
		User:       getEnv("DB_USER", "postgres"),
		Password:   getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "socialfeed"),
		SSLMode:    getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("DB_SQLITE_PATH", "socialfeed.db"),
		LogQueries: getEnv("DB_LOG_QUERIES", "false") == "true",
	}
}

// DSN builds the PostgreSQL connection string
func (c *Config) DSN() string {
	// Build DSN without empty password parameter
	if c.Password == "" {
		return fmt.Sprintf(
			"host=%s port=%s user=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.DBName, c.SSLMode,
		)
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Connect establishes a connection to the configured relational database
func Connect(config *Config, log *zap.SugaredLogger) error {
	var dialector gorm.Dialector
	switch config.Driver {
	case DriverPostgres:
		dialector = postgres.Open(config.DSN())
	case DriverSQLite:
		dialector = sqlite.Open(config.SQLitePath)
	default:
		return fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	logMode := logger.Warn
	if config.LogQueries {
		logMode = logger.Info
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Infow("connected to database", "driver", config.Driver, "database", config.DBName)
	return nil
}

// Migrate runs database migrations
func Migrate(log *zap.SugaredLogger) error {
	if DB == nil {
		return fmt.Errorf("database connection not established")
	}

	if err := models.AutoMigrate(DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
