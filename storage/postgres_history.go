package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"otodom-watch/models"
	"otodom-watch/utils"
)

// PostgresHistory is a HistoryStore backed by PostgreSQL. Idempotency per
// (link, day) is enforced by a unique constraint instead of read-modify-
// write logic, which also makes concurrent writers safe.
type PostgresHistory struct {
	db *sql.DB
}

// NewPostgresHistory opens a connection, waits for the database to accept
// pings, runs schema migrations, and returns a ready-to-use store.
func NewPostgresHistory(dsn string, logger *utils.Logger) (*PostgresHistory, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	}
	if err := retry.Do("postgres-ping", db.Ping); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ph := &PostgresHistory{db: db}
	if err := ph.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ph, nil
}

func (ph *PostgresHistory) migrate() error {
	_, err := ph.db.Exec(`
		CREATE TABLE IF NOT EXISTS price_history (
			id    SERIAL PRIMARY KEY,
			day   DATE          NOT NULL,
			link  TEXT          NOT NULL,
			price NUMERIC(12,2) NOT NULL,
			UNIQUE (link, day)
		);

		CREATE INDEX IF NOT EXISTS idx_price_history_link ON price_history(link);
	`)
	return err
}

// Record inserts one observation; duplicate (link, day) pairs are dropped
// by the unique constraint.
func (ph *PostgresHistory) Record(obs models.PriceObservation) error {
	if obs.Price == 0 {
		return nil
	}
	_, err := ph.db.Exec(`
		INSERT INTO price_history (day, link, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (link, day) DO NOTHING
	`, obs.Date, obs.SourceID, obs.Price)
	if err != nil {
		return fmt.Errorf("postgres: record: %w", err)
	}
	return nil
}

// History returns the most recent observations for a listing, newest first.
func (ph *PostgresHistory) History(sourceID string, limit int) ([]models.PriceObservation, error) {
	rows, err := ph.db.Query(`
		SELECT to_char(day, 'YYYY-MM-DD'), link, price
		FROM price_history
		WHERE link = $1
		ORDER BY day DESC
		LIMIT $2
	`, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: history: %w", err)
	}
	defer rows.Close()

	var out []models.PriceObservation
	for rows.Next() {
		var obs models.PriceObservation
		if err := rows.Scan(&obs.Date, &obs.SourceID, &obs.Price); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

func (ph *PostgresHistory) Close() error {
	return ph.db.Close()
}
