package server

import (
	"testing"
	"time"
)

func TestIsDueShortcuts(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if !isDue("@hourly", nil, now) {
		t.Fatal("never-run @hourly job must be due")
	}
	recent := now.Add(-30 * time.Minute)
	if isDue("@hourly", &recent, now) {
		t.Fatal("@hourly job run 30m ago must not be due")
	}
	old := now.Add(-2 * time.Hour)
	if !isDue("@hourly", &old, now) {
		t.Fatal("@hourly job run 2h ago must be due")
	}

	yesterday := now.Add(-25 * time.Hour)
	if !isDue("@daily", &yesterday, now) {
		t.Fatal("@daily job run 25h ago must be due")
	}
	thisMorning := now.Add(-6 * time.Hour)
	if isDue("@daily", &thisMorning, now) {
		t.Fatal("@daily job run 6h ago must not be due")
	}
}

func TestIsDueCronExpression(t *testing.T) {
	// Every day at 03:00.
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	beforeThree := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	if !isDue("0 3 * * *", &beforeThree, now) {
		t.Fatal("03:00 passed since last run, job must be due")
	}

	afterThree := time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC)
	if isDue("0 3 * * *", &afterThree, now) {
		t.Fatal("next 03:00 not reached yet, job must not be due")
	}

	if !isDue("0 3 * * *", nil, now) {
		t.Fatal("never-run cron job must be due")
	}
}

func TestIsDueInvalidSpecFallsBackToDaily(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if !isDue("not a cron", nil, now) {
		t.Fatal("never-run job must be due")
	}
	recent := now.Add(-time.Hour)
	if isDue("not a cron", &recent, now) {
		t.Fatal("invalid spec should behave like @daily")
	}
	old := now.Add(-25 * time.Hour)
	if !isDue("not a cron", &old, now) {
		t.Fatal("invalid spec should be due after a day")
	}
}
