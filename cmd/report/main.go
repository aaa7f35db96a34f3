package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"pricewatch/internal/history"
	"pricewatch/internal/indicator"
	"pricewatch/internal/logger"
	"pricewatch/internal/model"
	"pricewatch/internal/performance"
	"pricewatch/internal/render"
	"pricewatch/internal/store/redis"
	"pricewatch/internal/store/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/pricewatch.db", "Path to SQLite database")
	symbol := flag.String("symbol", "", "Instrument to report on (empty = all stored symbols)")
	window := flag.Duration("window", time.Hour, "Trailing window for the performance report")
	limit := flag.Int("limit", history.DefaultCapacity, "Observations to load per symbol")
	showAlerts := flag.Bool("alerts", false, "Also list stored alerts")
	redisAddr := flag.String("redis", "", "Redis address to compare against the live cached snapshot")
	flag.Parse()

	logger.Init("report", logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	reader, err := sqlite.NewReader(*dbPath)
	if err != nil {
		slog.Error("[report] open database", "error", err)
		os.Exit(1)
	}
	defer reader.Close()

	symbols := []string{model.NormalizeSymbol(*symbol)}
	if *symbol == "" {
		if symbols, err = reader.Symbols(); err != nil {
			slog.Error("[report] list symbols", "error", err)
			os.Exit(1)
		}
	}
	if len(symbols) == 0 {
		fmt.Println("no observations stored")
		return
	}

	var pub *redis.Publisher
	if *redisAddr != "" {
		if pub, err = redis.New(redis.PublisherConfig{Addr: *redisAddr}); err != nil {
			slog.Warn("[report] redis unavailable", "error", err)
		} else {
			defer pub.Close()
		}
	}

	for i, sym := range symbols {
		if i > 0 {
			fmt.Println()
		}
		if err := report(reader, pub, sym, *window, *limit); err != nil {
			slog.Error("[report] failed", "symbol", sym, "error", err)
			os.Exit(1)
		}
		if *showAlerts {
			alerts, err := reader.ReadAlerts(sym)
			if err != nil {
				slog.Error("[report] read alerts", "symbol", sym, "error", err)
				os.Exit(1)
			}
			render.Alerts(os.Stdout, alerts)
		}
	}
}

func report(reader *sqlite.Reader, pub *redis.Publisher, sym string, window time.Duration, limit int) error {
	obs, err := reader.ReadObservations(sym, limit)
	if err != nil {
		return err
	}
	if len(obs) == 0 {
		fmt.Printf("%s: no observations stored\n", sym)
		return nil
	}

	if err := render.Snapshot(os.Stdout, sym, indicator.Compute(obs)); err != nil {
		return err
	}

	// Stored data may be old: the window ends at the newest observation.
	rep, err := performance.Report(obs, window, obs[len(obs)-1].Timestamp)
	switch {
	case errors.Is(err, performance.ErrInsufficientData):
		fmt.Printf("%s: not enough observations in the last %s for a report\n", sym, window)
	case err != nil:
		return err
	default:
		if err := render.Report(os.Stdout, rep); err != nil {
			return err
		}
	}

	if pub != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		live, err := pub.LatestSnapshot(ctx, sym)
		if err != nil {
			return err
		}
		if live != nil {
			fmt.Println("live (redis):")
			return render.Snapshot(os.Stdout, sym, live)
		}
	}
	return nil
}
