package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"pricewatch/config"
	"pricewatch/internal/gateway"
	"pricewatch/internal/logger"
	"pricewatch/internal/metrics"
	"pricewatch/internal/model"
	"pricewatch/internal/notification"
	"pricewatch/internal/persistence"
	"pricewatch/internal/pricesource"
	"pricewatch/internal/store/redis"
	"pricewatch/internal/store/sqlite"
	"pricewatch/internal/tracker"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("[pricewatch] config", "error", err)
		os.Exit(1)
	}
	logger.Init("pricewatch", logger.ParseLevel(cfg.LogLevel))
	slog.Info("[pricewatch] starting...", "history_max", cfg.HistoryMax, "interval", cfg.TickInterval.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	health := metrics.NewHealthStatus()

	src, closeSource, err := newSource(cfg)
	if err != nil {
		slog.Error("[pricewatch] price source", "error", err)
		os.Exit(1)
	}
	defer closeSource()

	tr := tracker.New(tracker.Config{
		HistoryMax:   cfg.HistoryMax,
		TickInterval: cfg.TickInterval,
		FetchTimeout: cfg.FetchTimeout,
		Incremental:  cfg.Incremental,
	}, src, tracker.WithMetrics(m), tracker.WithHealth(health))

	// Storage: SQLite keeps every observation and alert plus state exports.
	var sqlWriter *sqlite.Writer
	var sqlDB *sql.DB
	if cfg.SQLitePath != "" {
		sqlWriter, err = sqlite.New(sqlite.WriterConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			slog.Error("[pricewatch] sqlite", "error", err)
			os.Exit(1)
		}
		sqlDB = sqlWriter.DB()
		sqlWriter.OnCommit = func(rows int, d time.Duration) {
			m.SQLiteCommitDur.Observe(d.Seconds())
		}
		health.EnableSQLite()
		warm(tr, cfg.SQLitePath)
	}

	specs, err := cfg.ParseWatchlist()
	if err != nil {
		slog.Error("[pricewatch] watchlist", "error", err)
		os.Exit(1)
	}
	for _, s := range specs {
		if _, err := tr.Add(s.Symbol, s.AlertPrice); err != nil {
			slog.Warn("[pricewatch] skipping watchlist entry", "symbol", s.Symbol, "error", err)
		}
	}

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context, <-chan model.Event)) {
		ch := tr.Subscribe(name)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx, ch)
		}()
	}

	if sqlWriter != nil {
		run("sqlite", sqlWriter.Run)
	}

	// Cache/pubsub: Redis is optional; the tracker runs without it.
	var pub *redis.Publisher
	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		pub, err = redis.New(redis.PublisherConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			slog.Warn("[pricewatch] redis unavailable, continuing without it", "error", err)
		} else {
			rdb = pub.Client()
			health.EnableRedis()
			health.SetRedisConnected(true)
			pub.OnWrite = func(d time.Duration) { m.RedisWriteDur.Observe(d.Seconds()) }
			pub.Breaker().OnStateChange = func(from, to redis.State) {
				m.RedisCircuitBreakerState.Set(float64(to))
				if to == redis.StateOpen {
					m.RedisCircuitBreakerTrips.Inc()
				}
				slog.Warn("[redis] circuit breaker", "from", from.String(), "to", to.String())
			}
			run("redis", pub.Run)
		}
	}

	dispatcher := notification.NewDispatcher(notifiers(cfg), 10*time.Second)
	dispatcher.OnResult = func(err error) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.NotificationsTotal.WithLabelValues(result).Inc()
	}
	run("notify", dispatcher.Run)

	hub := gateway.NewHub(256)
	hub.OnClients = func(n int) { m.WSClients.Set(float64(n)) }
	run("ws", hub.Run)

	health.StartLivenessChecker(ctx, rdb, sqlDB, 10*time.Second)
	go monitorBus(ctx, tr, m)

	var metricsSrv *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(cfg.MetricsAddr, prometheus.DefaultGatherer, health)
		metricsSrv.Start()
	}

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, gateway.NewAPI(tr, gateway.NewTOTPGuard(cfg.AdminTOTPSecret)), hub)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           gateway.WithCORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("[pricewatch] http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[pricewatch] http server error", "error", err)
		}
	}()

	if cfg.AutoStart {
		tr.Start()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("[pricewatch] shutting down", "signal", sig.String())

	tr.Stop()
	if sqlWriter != nil {
		saveExport(tr, sqlWriter)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		metricsSrv.Stop(shutdownCtx)
	}

	// Closing the bus lets every subscriber drain and return.
	tr.Close()
	wg.Wait()
	cancel()

	if sqlWriter != nil {
		sqlWriter.Close()
	}
	if pub != nil {
		pub.Close()
	}
	slog.Info("[pricewatch] stopped")
}

// newSource builds the configured price source and its cleanup.
func newSource(cfg *config.Config) (pricesource.Source, func(), error) {
	if cfg.Source != config.SourceReplay {
		return pricesource.NewSynthetic(cfg.Seed), func() {}, nil
	}
	reader, err := sqlite.NewReader(cfg.ReplayDB)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("[pricewatch] replaying recorded observations", "db", cfg.ReplayDB)
	return pricesource.NewReplay(reader), func() { reader.Close() }, nil
}

// warm restores the most recent export, if any.
func warm(tr *tracker.Tracker, path string) {
	reader, err := sqlite.NewReader(path)
	if err != nil {
		slog.Warn("[pricewatch] cannot open sqlite for warm start", "error", err)
		return
	}
	defer reader.Close()

	data, err := reader.ReadLatestExport()
	if err != nil {
		slog.Warn("[pricewatch] read latest export", "error", err)
		return
	}
	if data == nil {
		slog.Info("[pricewatch] no previous export, starting cold")
		return
	}
	if err := tr.Import(data); err != nil {
		slog.Warn("[pricewatch] previous export rejected, starting cold", "error", err)
		return
	}
	slog.Info("[pricewatch] restored previous state", "instruments", len(tr.Entries()), "alerts", len(tr.Alerts()))
}

func saveExport(tr *tracker.Tracker, w *sqlite.Writer) {
	data, err := persistence.Encode(tr.Export())
	if err != nil {
		slog.Error("[pricewatch] encode export", "error", err)
		return
	}
	if err := w.SaveExport(data); err != nil {
		slog.Error("[pricewatch] save export", "error", err)
		return
	}
	slog.Info("[pricewatch] state exported", "bytes", len(data))
}

func notifiers(cfg *config.Config) notification.Notifier {
	multi := notification.Multi{notification.NewLogNotifier()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		multi = append(multi, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		multi = append(multi, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	return multi
}

// monitorBus exports subscriber channel saturation every few seconds.
func monitorBus(ctx context.Context, tr *tracker.Tracker, m *metrics.Metrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range tr.BusStats() {
				if s.Cap > 0 {
					m.ChannelSaturationPct.WithLabelValues(s.Name).Set(float64(s.Len) / float64(s.Cap) * 100)
				}
			}
		}
	}
}
