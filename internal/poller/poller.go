package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// SymbolSource lists the symbols to tick.
type SymbolSource interface {
	Tracked() []string
}

// TickHandler runs one incremental update.
type TickHandler interface {
	Tick(ctx context.Context, symbol string) error
}

// TickHandlerFunc is a function adapter for TickHandler.
type TickHandlerFunc func(ctx context.Context, symbol string) error

func (f TickHandlerFunc) Tick(ctx context.Context, symbol string) error {
	return f(ctx, symbol)
}

// Flusher persists the working sets at session close.
type Flusher interface {
	Flush() error
}

// FlusherFunc is a function adapter for Flusher.
type FlusherFunc func() error

func (f FlusherFunc) Flush() error { return f() }

// Clock supplies session timing.
type Clock interface {
	Now() time.Time
	AfterClose(t time.Time) bool
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Round interval (default: 30s)
	Concurrency int           // Max concurrent ticks (default: 8)
	Timeout     time.Duration // Per-tick timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    30 * time.Second,
		Concurrency: 8,
		Timeout:     10 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
}

// Poller drives updater ticks on an interval.
type Poller struct {
	cfg     Config
	symbols SymbolSource
	handler TickHandler
	flusher Flusher
	clock   Clock
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// inFlight guards against overlapping ticks for one symbol across
	// rounds.
	mu       sync.Mutex
	inFlight map[string]struct{}

	// flushedDay remembers the last day the close-time flush ran.
	flushedDay string
}

// New creates a Poller.
func New(cfg Config, symbols SymbolSource, handler TickHandler, flusher Flusher, clock Clock, logger *slog.Logger) *Poller {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:      cfg,
		symbols:  symbols,
		handler:  handler,
		flusher:  flusher,
		clock:    clock,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("update poller started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("update poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.round()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.round()
		}
	}
}

// round ticks every tracked symbol, or flushes once after close.
func (p *Poller) round() {
	now := p.clock.Now()

	if p.clock.AfterClose(now) {
		p.flushOnce(now)
		return
	}

	p.pollAll()
}

// flushOnce persists the working sets the first time a round lands past
// the close.
func (p *Poller) flushOnce(now time.Time) {
	day := now.Format("20060102")
	if p.flushedDay == day {
		return
	}

	if err := p.flusher.Flush(); err != nil {
		p.logger.Error("end-of-session flush failed", "err", err)
		return
	}

	p.flushedDay = day
	p.logger.Info("end-of-session flush complete", "day", day)
}

// pollAll dispatches one tick per tracked symbol with bounded concurrency.
func (p *Poller) pollAll() {
	start := time.Now()

	symbols := p.symbols.Tracked()
	if len(symbols) == 0 {
		p.logger.Debug("no tracked symbols to update")
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Concurrency)

	var ticked, skipped, failed atomic.Int64

	for _, symbol := range symbols {
		if !p.acquire(symbol) {
			skipped.Add(1)
			continue
		}

		symbol := symbol
		g.Go(func() error {
			defer p.release(symbol)

			select {
			case <-p.ctx.Done():
				return nil
			default:
			}

			ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
			defer cancel()

			if err := p.handler.Tick(ctx, symbol); err != nil {
				p.logger.Warn("tick failed", "symbol", symbol, "err", err)
				failed.Add(1)
				return nil
			}
			ticked.Add(1)
			return nil
		})
	}

	g.Wait()

	p.logger.Info("update round complete",
		"symbols", len(symbols),
		"ticked", ticked.Load(),
		"skipped", skipped.Load(),
		"failed", failed.Load(),
		"duration", time.Since(start),
	)
}

func (p *Poller) acquire(symbol string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[symbol]; busy {
		return false
	}
	p.inFlight[symbol] = struct{}{}
	return true
}

func (p *Poller) release(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, symbol)
}
