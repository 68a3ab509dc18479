package model

import (
	"testing"
	"time"
)

func TestBar_Key(t *testing.T) {
	minute := Bar{Day: "20250101", Time: "090300"}
	if got := minute.Key(); got != "20250101090300" {
		t.Errorf("Key() = %q, want %q", got, "20250101090300")
	}

	daily := Bar{Day: "20250101"}
	if got := daily.Key(); got != "20250101" {
		t.Errorf("Key() = %q, want %q", got, "20250101")
	}
}

func TestBar_Plausible(t *testing.T) {
	tests := []struct {
		name string
		bar  Bar
		want bool
	}{
		{
			name: "normal bar",
			bar:  Bar{Open: 100, High: 105, Low: 99, Close: 103},
			want: true,
		},
		{
			name: "flat bar",
			bar:  Bar{Open: 100, High: 100, Low: 100, Close: 100},
			want: true,
		},
		{
			name: "high below close",
			bar:  Bar{Open: 100, High: 101, Low: 99, Close: 102},
			want: false,
		},
		{
			name: "low above open",
			bar:  Bar{Open: 100, High: 105, Low: 101, Close: 103},
			want: false,
		},
		{
			name: "negative low",
			bar:  Bar{Open: 100, High: 105, Low: -1, Close: 103},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bar.Plausible(); got != tt.want {
				t.Errorf("Plausible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDayOfClockOf(t *testing.T) {
	ts := time.Date(2025, 1, 2, 9, 35, 7, 0, time.UTC)

	if got := DayOf(ts); got != "20250102" {
		t.Errorf("DayOf = %q, want 20250102", got)
	}
	if got := ClockOf(ts); got != "093507" {
		t.Errorf("ClockOf = %q, want 093507", got)
	}
}

func TestMinuteOfDay(t *testing.T) {
	got, err := MinuteOfDay("093000")
	if err != nil {
		t.Fatalf("MinuteOfDay failed: %v", err)
	}
	if want := 9*60 + 30; got != want {
		t.Errorf("MinuteOfDay = %d, want %d", got, want)
	}

	if _, err := MinuteOfDay("9:30"); err == nil {
		t.Error("MinuteOfDay accepted malformed input")
	}
}

func TestAddMinutes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"090000", 1, "090100"},
		{"095930", 1, "100000"}, // seconds dropped before the shift
		{"152900", 1, "153000"},
		{"091500", -15, "090000"},
	}

	for _, tt := range tests {
		got, err := AddMinutes(tt.in, tt.n)
		if err != nil {
			t.Fatalf("AddMinutes(%q, %d) failed: %v", tt.in, tt.n, err)
		}
		if got != tt.want {
			t.Errorf("AddMinutes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
