package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/intraday-data/internal/model"
	"github.com/rickgao/intraday-data/internal/registry"
)

// batchSender is the slice of pgxpool.Pool the recorder uses.
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config holds recorder configuration.
type Config struct {
	BatchSize     int           // Rows per flush (default: 100)
	FlushInterval time.Duration // Max time a row waits (default: 5s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = def.FlushInterval
	}
}

// Metrics counts recorder activity.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}

type selectionRow struct {
	Symbol     string
	Name       string
	Day        string
	SelectedAt time.Time
	Reason     string
}

type priceRow struct {
	Symbol   string
	Day      string
	BarTime  string
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Turnover float64
}

// Recorder batches history rows into PostgreSQL.
type Recorder struct {
	cfg    Config
	db     batchSender
	logger *slog.Logger

	batchMu    sync.Mutex
	selections []selectionRow
	prices     []priceRow
	// seen dedupes selection rows per (symbol, day) before they even
	// reach the database's ON CONFLICT.
	seen    map[string]struct{}
	metrics Metrics

	flushTicker *time.Ticker
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// New creates a Recorder on the given pool.
func New(cfg Config, db batchSender, logger *slog.Logger) *Recorder {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:    cfg,
		db:     db,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

// Start begins the periodic flush loop.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("history recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop drains the batches and shuts down.
func (r *Recorder) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("history recorder stop timed out")
	}

	// Final flush with a background context; r.ctx is already cancelled.
	r.flush(context.Background())
	r.logger.Info("history recorder stopped")
	return nil
}

// Stats returns current metrics.
func (r *Recorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

// RecordSelection queues one selection event. At most one row per symbol
// per day reaches the database.
func (r *Recorder) RecordSelection(ev registry.SelectionEvent) {
	day := model.DayOf(ev.At)
	key := ev.Symbol + "/" + day

	r.batchMu.Lock()
	if _, dup := r.seen[key]; dup {
		r.batchMu.Unlock()
		return
	}
	r.seen[key] = struct{}{}
	r.selections = append(r.selections, selectionRow{
		Symbol:     ev.Symbol,
		Name:       ev.Name,
		Day:        day,
		SelectedAt: ev.At,
		Reason:     ev.Reason,
	})
	full := r.pendingLocked() >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if full {
		r.flush(r.ctx)
	}
}

// RecordBars queues persisted bars for the symbol.
func (r *Recorder) RecordBars(symbol string, bars model.Series) {
	if len(bars) == 0 {
		return
	}

	r.batchMu.Lock()
	for _, b := range bars {
		r.prices = append(r.prices, priceRow{
			Symbol:   symbol,
			Day:      b.Day,
			BarTime:  b.Time,
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			Volume:   b.Volume,
			Turnover: b.Turnover,
		})
	}
	full := r.pendingLocked() >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if full {
		r.flush(r.ctx)
	}
}

func (r *Recorder) pendingLocked() int {
	return len(r.selections) + len(r.prices)
}

func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush(r.ctx)
		}
	}
}

// flush writes the queued rows. A failed flush drops the batch; history is
// best effort.
func (r *Recorder) flush(ctx context.Context) {
	r.batchMu.Lock()
	if r.pendingLocked() == 0 {
		r.batchMu.Unlock()
		return
	}
	selections := r.selections
	prices := r.prices
	r.selections = nil
	r.prices = nil
	r.batchMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	conflicts, err := r.batchInsert(ctx, selections, prices)

	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	if err != nil {
		r.metrics.Errors++
		r.logger.Error("history flush failed",
			"selections", len(selections),
			"prices", len(prices),
			"err", err,
		)
		return
	}
	r.metrics.Inserts += int64(len(selections) + len(prices) - conflicts)
	r.metrics.Conflicts += int64(conflicts)
	r.metrics.Flushes++

	r.logger.Debug("history flushed",
		"selections", len(selections),
		"prices", len(prices),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert sends everything in one pgx.Batch. Selections insert once
// per symbol per day; prices upsert on (symbol, day, bar_time).
func (r *Recorder) batchInsert(ctx context.Context, selections []selectionRow, prices []priceRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, s := range selections {
		batch.Queue(`
			INSERT INTO candidate_stocks (symbol, name, trade_day, selected_at, reason)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (symbol, trade_day) DO NOTHING
		`, s.Symbol, s.Name, s.Day, s.SelectedAt, s.Reason)
	}
	for _, p := range prices {
		batch.Queue(`
			INSERT INTO stock_prices (symbol, trade_day, bar_time, open, high, low, close, volume, turnover)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (symbol, trade_day, bar_time) DO UPDATE SET
				open = EXCLUDED.open,
				high = EXCLUDED.high,
				low = EXCLUDED.low,
				close = EXCLUDED.close,
				volume = EXCLUDED.volume,
				turnover = EXCLUDED.turnover
		`, p.Symbol, p.Day, p.BarTime, p.Open, p.High, p.Low, p.Close, p.Volume, p.Turnover)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
