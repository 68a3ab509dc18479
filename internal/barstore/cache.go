package barstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rickgao/intraday-data/internal/model"
)

// ErrNotFound reports that a backend has no data for the partition.
var ErrNotFound = errors.New("barstore: partition not found")

// Config holds Bar Store configuration.
type Config struct {
	Dir          string // Root directory for both backends
	MinDailyRows int    // Daily partitions below this count as absent
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Dir:          "data",
		MinDailyRows: 50,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Dir == "" {
		c.Dir = def.Dir
	}
	if c.MinDailyRows <= 0 {
		c.MinDailyRows = def.MinDailyRows
	}
}

// Cache is the Bar Store: a parquet primary with a legacy CSV fallback.
// A single mutex serializes every write across all symbols; reads take no
// lock, relying on the backends' atomic rename discipline.
type Cache struct {
	cfg     Config
	primary *parquetBackend
	legacy  *flatBackend
	logger  *slog.Logger

	// writeMu guards Save and Clear. Readers see either the old or the
	// new file, never a partial one.
	writeMu sync.Mutex

	// now is swappable in tests; names legacy daily snapshots.
	now func() time.Time
}

// New creates a Bar Store rooted at cfg.Dir.
func New(cfg Config, logger *slog.Logger) (*Cache, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Cache{
		cfg:     cfg,
		primary: newParquetBackend(cfg.Dir),
		legacy:  newFlatBackend(filepath.Join(cfg.Dir, "legacy")),
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Has reports whether usable data exists in the primary backend. The
// legacy backend never satisfies Has; its data is reachable only through
// Load. Daily partitions must hold at least MinDailyRows rows to count.
func (c *Cache) Has(symbol string, scope Scope) bool {
	if !c.primary.Has(symbol, scope) {
		return false
	}
	if scope.Gran == Daily {
		bars, err := c.primary.Load(symbol, scope)
		if err != nil || len(bars) < c.cfg.MinDailyRows {
			return false
		}
	}
	return true
}

// Save persists a series. Minute scope replaces the whole partition; daily
// scope merges, keeping existing days the new series does not cover. An
// empty series is a successful no-op. A primary failure degrades to the
// legacy backend with a warning; only a failure of both returns an error.
func (c *Cache) Save(symbol string, scope Scope, bars model.Series) error {
	if len(bars) == 0 {
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	err := c.primary.Save(symbol, scope, bars)
	if err == nil {
		return nil
	}

	c.logger.Warn("primary store write failed, degrading to legacy",
		"symbol", symbol,
		"scope", scope.String(),
		"rows", len(bars),
		"err", err,
	)

	if lerr := c.legacy.Save(symbol, scope, bars, model.DayOf(c.now())); lerr != nil {
		return fmt.Errorf("primary save: %v; legacy save: %w", err, lerr)
	}
	return nil
}

// Load reads a partition, primary first, then legacy. The boolean is false
// when neither backend has it.
func (c *Cache) Load(symbol string, scope Scope) (model.Series, bool) {
	bars, err := c.primary.Load(symbol, scope)
	if err == nil {
		return bars, true
	}
	if !errors.Is(err, ErrNotFound) {
		c.logger.Warn("primary store read failed, trying legacy",
			"symbol", symbol,
			"scope", scope.String(),
			"err", err,
		)
	}

	bars, err = c.legacy.Load(symbol, scope)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("legacy store read failed",
				"symbol", symbol,
				"scope", scope.String(),
				"err", err,
			)
		}
		return nil, false
	}
	return bars, true
}

// LoadMinuteBars reads one day's minute partition.
func (c *Cache) LoadMinuteBars(symbol, day string) (model.Series, bool) {
	return c.Load(symbol, MinuteScope(day))
}

// LoadDailyBars reads a symbol's daily history.
func (c *Cache) LoadDailyBars(symbol string) (model.Series, bool) {
	return c.Load(symbol, DailyScope())
}

// ClearPartition removes one partition from both backends.
func (c *Cache) ClearPartition(symbol string, scope Scope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return errors.Join(
		c.primary.ClearPartition(symbol, scope),
		c.legacy.ClearPartition(symbol, scope),
	)
}

// ClearSymbol removes every partition for the symbol from both backends.
func (c *Cache) ClearSymbol(symbol string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return errors.Join(
		c.primary.ClearSymbol(symbol),
		c.legacy.ClearSymbol(symbol),
	)
}

// ClearAll removes everything from both backends.
func (c *Cache) ClearAll() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.primary.ClearAll(); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(c.cfg.Dir, "legacy"))
}
