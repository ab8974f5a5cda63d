package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Store persists classification audit records in PostgreSQL
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Config contains database configuration
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// NewStore connects to the database and ensures the schema exists
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}

	logger.Info("History store initialized successfully",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns))

	return store, nil
}

// initialize checks the connection and creates the classifications table
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS classifications (
			id          BIGSERIAL PRIMARY KEY,
			request_id  TEXT NOT NULL,
			text_hash   TEXT NOT NULL,
			top_label   TEXT NOT NULL,
			ranking     JSONB NOT NULL,
			multi_label BOOLEAN NOT NULL DEFAULT FALSE,
			cache_hit   BOOLEAN NOT NULL DEFAULT FALSE,
			duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create classifications table: %w", err)
	}

	index := `CREATE INDEX IF NOT EXISTS idx_classifications_created_at
		ON classifications (created_at DESC)`
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("failed to create history index: %w", err)
	}

	return nil
}

// Insert stores a single classification record
func (s *Store) Insert(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO classifications (request_id, text_hash, top_label, ranking, multi_label, cache_hit, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		record.RequestID,
		record.TextHash,
		record.TopLabel,
		record.Ranking,
		record.MultiLabel,
		record.CacheHit,
		record.DurationMS,
	).Scan(&record.ID, &record.CreatedAt)

	if err != nil {
		s.logger.Error("Failed to insert classification record",
			zap.Error(err),
			zap.String("request_id", record.RequestID),
			zap.String("top_label", record.TopLabel))
		return fmt.Errorf("failed to insert classification record: %w", err)
	}

	s.logger.Debug("Classification record inserted",
		zap.Int64("id", record.ID),
		zap.String("top_label", record.TopLabel))

	return nil
}

// Recent returns the most recent classification records, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, request_id, text_hash, top_label, ranking, multi_label, cache_hit, duration_ms, created_at
		FROM classifications
		ORDER BY created_at DESC
		LIMIT $1`

	var records []*Record
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query recent classifications: %w", err)
	}

	return records, nil
}

// GetStats returns aggregate statistics over the stored history
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	query := `
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN cache_hit THEN 1 END) as hits,
			COALESCE(AVG(duration_ms), 0) as avg_duration
		FROM classifications`

	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalRecords,
		&stats.CacheHits,
		&stats.AvgDuration,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get history stats: %w", err)
	}

	return stats, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks sensitive information in database URL for logging
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
