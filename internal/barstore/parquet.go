package barstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"

	"github.com/rickgao/intraday-data/internal/model"
)

// barRow is the parquet row layout. Day and time stay wire-format strings
// so the files sort and filter the same way the in-memory series do.
type barRow struct {
	Day      string  `parquet:"day"`
	Time     string  `parquet:"time"`
	Open     float64 `parquet:"open"`
	High     float64 `parquet:"high"`
	Low      float64 `parquet:"low"`
	Close    float64 `parquet:"close"`
	Volume   int64   `parquet:"volume"`
	Turnover float64 `parquet:"turnover"`
}

func (r barRow) toBar() model.Bar {
	return model.Bar{
		Day:      r.Day,
		Time:     r.Time,
		Open:     r.Open,
		High:     r.High,
		Low:      r.Low,
		Close:    r.Close,
		Volume:   r.Volume,
		Turnover: r.Turnover,
	}
}

func toRows(bars model.Series) []barRow {
	rows := make([]barRow, len(bars))
	for i, b := range bars {
		rows[i] = barRow(b)
	}
	return rows
}

// rowPool holds reusable decode buffers. Reuse contract: a buffer is
// borrowed for the duration of one read call, every decoded row is copied
// into the result series before the buffer is truncated and returned. Rows
// must never escape the call holding the buffer.
var rowPool = sync.Pool{
	New: func() any {
		buf := make([]barRow, 0, 512)
		return &buf
	},
}

// parquetBackend stores one parquet file per partition under dir.
type parquetBackend struct {
	dir string
}

func newParquetBackend(dir string) *parquetBackend {
	return &parquetBackend{dir: dir}
}

func (b *parquetBackend) path(symbol string, scope Scope) string {
	if scope.Gran == Minute {
		return filepath.Join(b.dir, "minute", fmt.Sprintf("%s_%s.parquet", symbol, scope.Day))
	}
	return filepath.Join(b.dir, "daily", symbol+".parquet")
}

// Has reports whether the partition file exists.
func (b *parquetBackend) Has(symbol string, scope Scope) bool {
	_, err := os.Stat(b.path(symbol, scope))
	return err == nil
}

// Save replaces a minute partition wholesale, or merges into the daily
// history keeping existing non-overlapping days. The write is a temp file
// renamed into place so readers never observe a partial file.
func (b *parquetBackend) Save(symbol string, scope Scope, bars model.Series) error {
	path := b.path(symbol, scope)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create partition dir: %w", err)
	}

	out := bars
	if scope.Gran == Daily {
		existing, err := b.read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read existing daily file: %w", err)
		}
		// Existing days not covered by the new series survive the rewrite.
		newDays := bars.Days()
		var kept model.Series
		for _, bar := range existing {
			if _, overlap := newDays[bar.Day]; !overlap {
				kept = append(kept, bar)
			}
		}
		out = model.Merge(kept, bars)
	}

	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, toRows(out)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename parquet %s: %w", path, err)
	}
	return nil
}

// Load returns the partition's bars, or ErrNotFound when absent.
func (b *parquetBackend) Load(symbol string, scope Scope) (model.Series, error) {
	bars, err := b.read(b.path(symbol, scope))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return bars, nil
}

func (b *parquetBackend) read(path string) (model.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := parquet.NewGenericReader[barRow](f)
	defer r.Close()

	bufp := rowPool.Get().(*[]barRow)
	buf := (*bufp)[:cap(*bufp)]
	defer func() {
		*bufp = buf[:0]
		rowPool.Put(bufp)
	}()

	var out model.Series
	for {
		n, err := r.Read(buf)
		for _, row := range buf[:n] {
			out = append(out, row.toBar())
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode parquet %s: %w", path, err)
		}
	}
	return out, nil
}

// ClearPartition removes one partition file.
func (b *parquetBackend) ClearPartition(symbol string, scope Scope) error {
	err := os.Remove(b.path(symbol, scope))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ClearSymbol removes every partition belonging to the symbol.
func (b *parquetBackend) ClearSymbol(symbol string) error {
	matches, err := filepath.Glob(filepath.Join(b.dir, "minute", symbol+"_*.parquet"))
	if err != nil {
		return err
	}
	matches = append(matches, filepath.Join(b.dir, "daily", symbol+".parquet"))
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ClearAll removes the whole store.
func (b *parquetBackend) ClearAll() error {
	for _, sub := range []string{"minute", "daily"} {
		if err := os.RemoveAll(filepath.Join(b.dir, sub)); err != nil {
			return err
		}
	}
	return nil
}
