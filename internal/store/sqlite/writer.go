package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pricewatch/internal/model"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond

	// exportsKept is how many exports survive pruning.
	exportsKept = 10
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/pricewatch.db"
}

// Writer is a single-goroutine SQLite writer with transaction batching.
// It records every observation and alert the tracker publishes, and keeps
// the most recent state exports.
type Writer struct {
	db *sql.DB

	// OnCommit is called after each successful batch commit.
	OnCommit func(rows int, d time.Duration)
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

func open(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
}

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("[sqlite] opened database", "path", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS observations (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			price  REAL    NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			volume INTEGER NOT NULL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id            TEXT    PRIMARY KEY,
			symbol        TEXT    NOT NULL,
			current_price REAL    NOT NULL,
			alert_price   REAL    NOT NULL,
			ts            INTEGER NOT NULL,
			message       TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS alerts_symbol_ts ON alerts (symbol, ts);

		CREATE TABLE IF NOT EXISTS exports (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			data       TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		);
	`)
	return err
}

// Run reads tracker events and stores their observations and alerts in
// batched transactions. Flushes every batchSize events OR every flushDelay,
// whichever first. Blocks until ctx is cancelled or events is closed.
func (w *Writer) Run(ctx context.Context, events <-chan model.Event) {
	batch := make([]model.Event, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertBatch(batch); err != nil {
			slog.Error("[sqlite] batch insert error", "error", err)
		} else {
			d := time.Since(start)
			slog.Debug("[sqlite] committed events", "count", len(batch), "duration", d.String())
			if w.OnCommit != nil {
				w.OnCommit(len(batch), d)
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case ev, ok := <-events:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// insertBatch inserts a batch of events in a single transaction.
func (w *Writer) insertBatch(events []model.Event) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	obsStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO observations (symbol, ts, price, open, high, low, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer obsStmt.Close()

	alertStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO alerts (id, symbol, current_price, alert_price, ts, message)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer alertStmt.Close()

	for _, ev := range events {
		switch {
		case ev.Kind == model.EventSnapshot && ev.Observation != nil:
			o := ev.Observation
			_, err = obsStmt.Exec(o.Symbol, o.Timestamp.UnixNano(), o.Price, o.Open, o.High, o.Low, o.Volume)
		case ev.Kind == model.EventAlert && ev.Alert != nil:
			a := ev.Alert
			_, err = alertStmt.Exec(a.ID, a.Symbol, a.CurrentPrice, a.AlertPrice, a.Timestamp.UnixNano(), a.Message)
		default:
			continue
		}
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// SaveExport stores an encoded tracker export and prunes all but the most
// recent ones.
func (w *Writer) SaveExport(data []byte) error {
	_, err := w.db.Exec(`INSERT INTO exports (data, created_at) VALUES (?, ?)`, string(data), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite insert export: %w", err)
	}

	_, err = w.db.Exec(`DELETE FROM exports WHERE id NOT IN (SELECT id FROM exports ORDER BY id DESC LIMIT ?)`, exportsKept)
	if err != nil {
		slog.Warn("[sqlite] prune exports warning", "error", err)
	}
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
