package scheduler

import (
	"testing"
	"time"
)

func TestParseCron_DailyRefresh(t *testing.T) {
	for _, spec := range []string{DailyRefresh, "@midnight", "@daily", " 0 0 * * * "} {
		expr, err := ParseCron(spec)
		if err != nil {
			t.Fatalf("ParseCron(%q): %v", spec, err)
		}
		evening := time.Date(2024, 6, 5, 21, 30, 0, 0, time.UTC)
		want := time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC)
		if got := expr.Next(evening); !got.Equal(want) {
			t.Errorf("%q: Next(%v) = %v, want %v", spec, evening, got, want)
		}
	}
}

func TestParseCron_Invalid(t *testing.T) {
	for _, spec := range []string{"", "   ", "not a cron", "0 0 * *", "61 0 * * *"} {
		if _, err := ParseCron(spec); err == nil {
			t.Errorf("ParseCron(%q) accepted", spec)
		}
	}
}

func TestCronExpr_NextAtMidnightIsTomorrow(t *testing.T) {
	expr, err := ParseCron(DailyRefresh)
	if err != nil {
		t.Fatal(err)
	}
	midnight := time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC)
	want := time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	if got := expr.Next(midnight); !got.Equal(want) {
		t.Errorf("Next(midnight) = %v, want %v", got, want)
	}
	// Week and month rollover.
	sat := time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC)
	if got := expr.Next(sat); !got.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Next(%v) = %v", sat, got)
	}
}

func TestCronExpr_FollowsLocation(t *testing.T) {
	expr, err := ParseCron(DailyRefresh)
	if err != nil {
		t.Fatal(err)
	}
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, 6, 5, 23, 0, 0, 0, loc)
	got := expr.Next(now).In(loc)
	if got.Hour() != 0 || got.Day() != 6 {
		t.Errorf("Next = %v, want local midnight of June 6", got)
	}
}

func TestCronExpr_Until(t *testing.T) {
	expr, err := ParseCron(DailyRefresh)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 6, 5, 21, 30, 0, 0, time.UTC)
	if got := expr.Until(now); got != 150*time.Minute {
		t.Errorf("Until = %v, want 2h30m", got)
	}
	if expr.String() != DailyRefresh {
		t.Errorf("String = %q", expr.String())
	}
}
