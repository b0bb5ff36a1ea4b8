package app

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/config"

	"github.com/lib/pq"
)

// OpenDB connects to Postgres using the configured credentials and verifies
// the connection with a ping.
func OpenDB(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s",
		cfg.DB.Username,
		cfg.DB.Password,
		cfg.DB.URL,
		cfg.DB.Port,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (code 23505). The webhook ledger relies on this as the
// duplicate-event signal.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
