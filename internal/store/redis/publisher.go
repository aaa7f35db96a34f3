package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"pricewatch/internal/model"
)

const (
	// AlertStream holds every fired alert, trimmed approximately.
	AlertStream       = "alerts"
	alertStreamMaxLen = 10000

	defaultSnapshotTTL = 30 * time.Minute
	defaultMaxBuffer   = 10000
)

// SnapshotKey is where the latest snapshot of a symbol is cached.
func SnapshotKey(symbol string) string { return "snap:" + symbol }

// SnapshotChannel carries every snapshot event of a symbol.
func SnapshotChannel(symbol string) string { return "pub:snap:" + symbol }

// AlertChannel carries every alert event of a symbol.
func AlertChannel(symbol string) string { return "pub:alert:" + symbol }

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr        string // Redis address, e.g. "localhost:6379"
	Password    string
	DB          int
	SnapshotTTL time.Duration

	// Breaker settings; zero values use 5 failures and 10s.
	MaxFailures  int
	ResetTimeout time.Duration
	MaxBuffer    int
}

type opKind int

const (
	opSet opKind = iota
	opPublish
	opXAdd
)

// command is one Redis write derived from a tracker event.
type command struct {
	op    opKind
	key   string
	value string
	ttl   time.Duration
}

// Publisher mirrors tracker events into Redis: it caches the latest
// snapshot per symbol, fans events out over pub/sub and keeps an alert
// stream. Writes go through a circuit breaker; while it is open they are
// buffered and replayed once Redis accepts writes again.
type Publisher struct {
	client *goredis.Client
	cb     *CircuitBreaker
	ttl    time.Duration
	exec   func(ctx context.Context, cmds []command) error

	mu     sync.Mutex
	buffer []command
	maxBuf int

	// Callbacks
	OnWrite  func(d time.Duration) // called after each successful pipeline
	OnBuffer func()                // called when a write is buffered
	OnFlush  func(count int)       // called after replaying buffered writes
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// Breaker returns the circuit breaker guarding writes.
func (p *Publisher) Breaker() *CircuitBreaker { return p.cb }

// New creates a Publisher and pings the server.
func New(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	p := newPublisher(cfg, nil)
	p.client = client
	p.exec = p.pipeline
	slog.Info("[redis] connected", "addr", cfg.Addr)
	return p, nil
}

func newPublisher(cfg PublisherConfig, exec func(context.Context, []command) error) *Publisher {
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = defaultSnapshotTTL
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 10 * time.Second
	}
	if cfg.MaxBuffer <= 0 {
		cfg.MaxBuffer = defaultMaxBuffer
	}
	return &Publisher{
		cb:     NewCircuitBreaker(cfg.MaxFailures, cfg.ResetTimeout),
		ttl:    cfg.SnapshotTTL,
		exec:   exec,
		maxBuf: cfg.MaxBuffer,
	}
}

// Run publishes events until ctx is cancelled or events is closed.
func (p *Publisher) Run(ctx context.Context, events <-chan model.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := p.Publish(ctx, ev); err != nil {
				slog.Warn("[redis] publish failed", "symbol", ev.Symbol, "type", ev.Kind, "error", err)
			}
		}
	}
}

// Publish writes one event. When the breaker is open the writes are
// buffered and nil is returned.
func (p *Publisher) Publish(ctx context.Context, ev model.Event) error {
	cmds, err := p.commandsFor(ev)
	if err != nil || len(cmds) == 0 {
		return err
	}

	err = p.write(ctx, cmds)
	if errors.Is(err, ErrCircuitOpen) {
		p.bufferWrite(cmds)
		return nil
	}
	if err != nil {
		return err
	}
	p.flush(ctx)
	return nil
}

// Buffered returns the number of writes waiting for the breaker to close.
func (p *Publisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}

// LatestSnapshot reads the cached snapshot of symbol.
// It returns nil, nil when nothing is cached.
func (p *Publisher) LatestSnapshot(ctx context.Context, symbol string) (*model.IndicatorSnapshot, error) {
	data, err := p.client.Get(ctx, SnapshotKey(symbol)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", SnapshotKey(symbol), err)
	}
	var snap model.IndicatorSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", symbol, err)
	}
	return &snap, nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *Publisher) commandsFor(ev model.Event) ([]command, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	switch ev.Kind {
	case model.EventSnapshot:
		var cmds []command
		if ev.Snapshot != nil {
			snap, err := json.Marshal(ev.Snapshot)
			if err != nil {
				return nil, fmt.Errorf("marshal snapshot: %w", err)
			}
			cmds = append(cmds, command{op: opSet, key: SnapshotKey(ev.Symbol), value: string(snap), ttl: p.ttl})
		}
		return append(cmds, command{op: opPublish, key: SnapshotChannel(ev.Symbol), value: string(payload)}), nil
	case model.EventAlert:
		if ev.Alert == nil {
			return nil, nil
		}
		alert, err := json.Marshal(ev.Alert)
		if err != nil {
			return nil, fmt.Errorf("marshal alert: %w", err)
		}
		return []command{
			{op: opPublish, key: AlertChannel(ev.Symbol), value: string(payload)},
			{op: opXAdd, key: AlertStream, value: string(alert)},
		}, nil
	}
	return nil, nil
}

func (p *Publisher) write(ctx context.Context, cmds []command) error {
	return p.cb.Execute(func() error {
		start := time.Now()
		if err := p.exec(ctx, cmds); err != nil {
			return err
		}
		if p.OnWrite != nil {
			p.OnWrite(time.Since(start))
		}
		return nil
	})
}

// pipeline sends cmds in a single round trip.
func (p *Publisher) pipeline(ctx context.Context, cmds []command) error {
	pipe := p.client.Pipeline()
	for _, c := range cmds {
		switch c.op {
		case opSet:
			pipe.Set(ctx, c.key, c.value, c.ttl)
		case opPublish:
			pipe.Publish(ctx, c.key, c.value)
		case opXAdd:
			pipe.XAdd(ctx, &goredis.XAddArgs{
				Stream: c.key,
				MaxLen: alertStreamMaxLen,
				Approx: true,
				Values: map[string]interface{}{"data": c.value},
			})
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (p *Publisher) bufferWrite(cmds []command) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range cmds {
		if len(p.buffer) >= p.maxBuf {
			// Buffer full: drop oldest
			p.buffer = p.buffer[1:]
		}
		p.buffer = append(p.buffer, c)
	}
	if p.OnBuffer != nil {
		p.OnBuffer()
	}
}

// flush replays buffered writes. On failure the remainder goes back to
// the front of the buffer.
func (p *Publisher) flush(ctx context.Context) {
	p.mu.Lock()
	if len(p.buffer) == 0 {
		p.mu.Unlock()
		return
	}
	toFlush := p.buffer
	p.buffer = nil
	p.mu.Unlock()

	if err := p.write(ctx, toFlush); err != nil {
		p.mu.Lock()
		p.buffer = append(toFlush, p.buffer...)
		if over := len(p.buffer) - p.maxBuf; over > 0 {
			p.buffer = p.buffer[over:]
		}
		p.mu.Unlock()
		slog.Warn("[redis] flush of buffered writes failed", "pending", len(toFlush), "error", err)
		return
	}

	slog.Info("[redis] flushed buffered writes", "count", len(toFlush))
	if p.OnFlush != nil {
		p.OnFlush(len(toFlush))
	}
}
