package datafeed

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ConfigFromEnv builds the connection config from DB_* environment
// variables. The password has no default.
func ConfigFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnvOrDefault("DB_HOST", "localhost"),
		Port:     getEnvOrDefault("DB_PORT", "5432"),
		User:     getEnvOrDefault("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   getEnvOrDefault("DB_NAME", "signalmaker"),
		SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
	}
}

// Store wraps the Postgres connection and owns all persistence for
// signals, orders, settings, watchlist, price history and pending
// confirmations.
type Store struct {
	db *sql.DB
}

func Open(config DatabaseConfig) (*Store, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initializeSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initializeSchema creates the tables if they don't exist
func (s *Store) initializeSchema() error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS signals (
		id SERIAL PRIMARY KEY,
		symbol TEXT NOT NULL,
		signal_date DATE NOT NULL,
		close REAL NOT NULL,
		traditional_label TEXT NOT NULL,
		traditional_score REAL NOT NULL,
		model_label TEXT,
		model_probability REAL,
		model_score REAL,
		sentiment_label TEXT,
		sentiment_score REAL,
		sentiment_confidence REAL,
		composite_score REAL NOT NULL,
		final_label TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, signal_date)
	);

	CREATE TABLE IF NOT EXISTS orders (
		id SERIAL PRIMARY KEY,
		broker_order_id TEXT NOT NULL UNIQUE,
		symbol TEXT NOT NULL,
		broker TEXT NOT NULL,
		quantity BIGINT NOT NULL,
		price REAL NOT NULL,
		order_type TEXT NOT NULL,
		stop_loss REAL,
		target REAL,
		status TEXT NOT NULL,
		security_id TEXT,
		trailing_jump REAL,
		filled_quantity BIGINT DEFAULT 0,
		remaining_quantity BIGINT DEFAULT 0,
		average_price REAL DEFAULT 0,
		legs TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS watchlist (
		id SERIAL PRIMARY KEY,
		symbol TEXT NOT NULL UNIQUE,
		added_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		status TEXT DEFAULT 'active'
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id SERIAL PRIMARY KEY,
		symbol TEXT NOT NULL,
		date DATE NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume BIGINT NOT NULL,
		UNIQUE(symbol, date)
	);

	CREATE TABLE IF NOT EXISTS pending_confirmations (
		symbol TEXT PRIMARY KEY,
		signal_date DATE NOT NULL,
		confirmation_count INTEGER NOT NULL DEFAULT 0,
		anchor_close REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS securities (
		id SERIAL PRIMARY KEY,
		symbol TEXT NOT NULL UNIQUE,
		name TEXT,
		security_id TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);
	CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
	CREATE INDEX IF NOT EXISTS idx_price_history_symbol ON price_history(symbol);
	`

	_, err := s.db.Exec(schemaSQL)
	return err
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (s *Store) HealthCheck() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Ping()
}
