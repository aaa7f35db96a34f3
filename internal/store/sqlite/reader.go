package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pricewatch/internal/model"
)

// Reader provides read-only access to SQLite for history warm-up, offline
// reports and state restore.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	slog.Info("[sqlite-reader] opened database", "path", dbPath)
	return &Reader{db: db}, nil
}

// ReadObservations returns the newest limit observations of symbol, oldest
// first. limit <= 0 returns all of them.
func (r *Reader) ReadObservations(symbol string, limit int) ([]model.PriceObservation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(`
		SELECT symbol, ts, price, open, high, low, volume FROM (
			SELECT * FROM observations
			WHERE symbol = ?
			ORDER BY ts DESC
			LIMIT ?
		) ORDER BY ts ASC
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query observations: %w", err)
	}
	defer rows.Close()

	var out []model.PriceObservation
	for rows.Next() {
		var o model.PriceObservation
		var ts int64
		if err := rows.Scan(&o.Symbol, &ts, &o.Price, &o.Open, &o.High, &o.Low, &o.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan observations: %w", err)
		}
		o.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

// Symbols lists every symbol with stored observations.
func (r *Reader) Symbols() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT symbol FROM observations ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReadAlerts returns the stored alerts of symbol (all symbols when empty),
// oldest first.
func (r *Reader) ReadAlerts(symbol string) ([]model.AlertEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, current_price, alert_price, ts, message
		FROM alerts
		WHERE ? = '' OR symbol = ?
		ORDER BY ts ASC, id ASC
	`, symbol, symbol)
	if err != nil {
		return nil, fmt.Errorf("sqlite query alerts: %w", err)
	}
	defer rows.Close()

	var out []model.AlertEvent
	for rows.Next() {
		var a model.AlertEvent
		var ts int64
		if err := rows.Scan(&a.ID, &a.Symbol, &a.CurrentPrice, &a.AlertPrice, &ts, &a.Message); err != nil {
			return nil, fmt.Errorf("sqlite scan alerts: %w", err)
		}
		a.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// ReadLatestExport returns the most recent stored export, or nil when there
// is none.
func (r *Reader) ReadLatestExport() ([]byte, error) {
	var data string
	err := r.db.QueryRow(`SELECT data FROM exports ORDER BY id DESC LIMIT 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // no export
		}
		return nil, fmt.Errorf("sqlite read export: %w", err)
	}
	return []byte(data), nil
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
