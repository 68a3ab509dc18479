package chart

import (
	"strconv"
	"strings"

	"github.com/rickgao/intraday-data/internal/model"
)

// ParsePrice parses a wire price string, tolerating thousands separators.
// Returns 0 for empty or invalid input.
func ParsePrice(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// ParseVolume parses a wire volume string. Returns 0 for empty or invalid
// input.
func ParseVolume(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (r chartRow) toBar() model.Bar {
	return model.Bar{
		Day:      r.BsopDate,
		Time:     r.CntgHour,
		Open:     ParsePrice(r.Oprc),
		High:     ParsePrice(r.Hgpr),
		Low:      ParsePrice(r.Lwpr),
		Close:    ParsePrice(r.Prpr),
		Volume:   ParseVolume(r.CntgVol),
		Turnover: ParsePrice(r.AcmlTrPbmn),
	}
}

func (r dailyRow) toBar() model.Bar {
	return model.Bar{
		Day:      r.BsopDate,
		Open:     ParsePrice(r.Oprc),
		High:     ParsePrice(r.Hgpr),
		Low:      ParsePrice(r.Lwpr),
		Close:    ParsePrice(r.Clpr),
		Volume:   ParseVolume(r.AcmlVol),
		Turnover: ParsePrice(r.AcmlTrPbmn),
	}
}

func rowsToSeries(rows []chartRow) model.Series {
	out := make(model.Series, 0, len(rows))
	for _, r := range rows {
		if r.BsopDate == "" {
			continue
		}
		out = append(out, r.toBar())
	}
	return out
}

func dailyRowsToSeries(rows []dailyRow) model.Series {
	out := make(model.Series, 0, len(rows))
	for _, r := range rows {
		if r.BsopDate == "" {
			continue
		}
		out = append(out, r.toBar())
	}
	return out
}
