package barstore

// Granularity selects minute or daily partitioning.
type Granularity string

const (
	Minute Granularity = "minute"
	Daily  Granularity = "daily"
)

// Scope addresses one partition of a symbol's data: a single trading day
// for minute bars, the whole daily history for daily bars.
type Scope struct {
	Gran Granularity
	Day  string // YYYYMMDD, set only for minute scopes
}

// MinuteScope addresses the minute partition for one trading day.
func MinuteScope(day string) Scope {
	return Scope{Gran: Minute, Day: day}
}

// DailyScope addresses a symbol's daily history.
func DailyScope() Scope {
	return Scope{Gran: Daily}
}

func (s Scope) String() string {
	if s.Gran == Minute {
		return "minute/" + s.Day
	}
	return "daily"
}
