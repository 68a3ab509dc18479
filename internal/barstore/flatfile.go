package barstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rickgao/intraday-data/internal/model"
)

// flatBackend is the legacy CSV store: SYMBOL_DAY.csv for a minute
// partition, SYMBOL_DAY_daily.csv for a daily snapshot. Daily snapshots
// accumulate; reads pick the newest file by modification time, the way the
// deployments that produced these files did.
type flatBackend struct {
	dir string
}

func newFlatBackend(dir string) *flatBackend {
	return &flatBackend{dir: dir}
}

var csvHeader = []string{"day", "time", "open", "high", "low", "close", "volume", "turnover"}

func (b *flatBackend) minutePath(symbol, day string) string {
	return filepath.Join(b.dir, fmt.Sprintf("%s_%s.csv", symbol, day))
}

func (b *flatBackend) dailyPath(symbol, day string) string {
	return filepath.Join(b.dir, fmt.Sprintf("%s_%s_daily.csv", symbol, day))
}

// newestDaily returns the most recently modified daily snapshot for symbol.
func (b *flatBackend) newestDaily(symbol string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(b.dir, symbol+"_*_daily.csv"))
	if err != nil || len(matches) == 0 {
		return "", ErrNotFound
	}

	var newest string
	var newestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = m, mod
		}
	}
	if newest == "" {
		return "", ErrNotFound
	}
	return newest, nil
}

// Save writes the partition as a CSV. writeDay names daily snapshots; the
// Cache passes the current trading day.
func (b *flatBackend) Save(symbol string, scope Scope, bars model.Series, writeDay string) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create legacy dir: %w", err)
	}

	var path string
	if scope.Gran == Minute {
		path = b.minutePath(symbol, scope.Day)
	} else {
		path = b.dailyPath(symbol, writeDay)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create csv %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	for _, bar := range bars {
		rec := []string{
			bar.Day,
			bar.Time,
			strconv.FormatFloat(bar.Open, 'f', -1, 64),
			strconv.FormatFloat(bar.High, 'f', -1, 64),
			strconv.FormatFloat(bar.Low, 'f', -1, 64),
			strconv.FormatFloat(bar.Close, 'f', -1, 64),
			strconv.FormatInt(bar.Volume, 10),
			strconv.FormatFloat(bar.Turnover, 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a partition, or ErrNotFound when absent.
func (b *flatBackend) Load(symbol string, scope Scope) (model.Series, error) {
	var path string
	if scope.Gran == Minute {
		path = b.minutePath(symbol, scope.Day)
	} else {
		newest, err := b.newestDaily(symbol)
		if err != nil {
			return nil, err
		}
		path = newest
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	out := make(model.Series, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != len(csvHeader) {
			return nil, fmt.Errorf("csv %s: record has %d fields, want %d", path, len(rec), len(csvHeader))
		}
		open, err1 := strconv.ParseFloat(rec[2], 64)
		high, err2 := strconv.ParseFloat(rec[3], 64)
		low, err3 := strconv.ParseFloat(rec[4], 64)
		cls, err4 := strconv.ParseFloat(rec[5], 64)
		vol, err5 := strconv.ParseInt(rec[6], 10, 64)
		turn, err6 := strconv.ParseFloat(rec[7], 64)
		if err := errors.Join(err1, err2, err3, err4, err5, err6); err != nil {
			return nil, fmt.Errorf("csv %s: %w", path, err)
		}
		out = append(out, model.Bar{
			Day: rec[0], Time: rec[1],
			Open: open, High: high, Low: low, Close: cls,
			Volume: vol, Turnover: turn,
		})
	}
	return out, nil
}

// ClearPartition removes a minute partition, or every daily snapshot for
// the symbol when the scope is daily.
func (b *flatBackend) ClearPartition(symbol string, scope Scope) error {
	if scope.Gran == Minute {
		err := os.Remove(b.minutePath(symbol, scope.Day))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	matches, _ := filepath.Glob(filepath.Join(b.dir, symbol+"_*_daily.csv"))
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ClearSymbol removes every file belonging to the symbol.
func (b *flatBackend) ClearSymbol(symbol string) error {
	matches, err := filepath.Glob(filepath.Join(b.dir, symbol+"_*.csv"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
