package reminder

import (
	"strings"
	"testing"
	"time"
)

func TestComputePlanOffsets(t *testing.T) {
	due := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	now := due.Add(-30 * 24 * time.Hour)

	plan := ComputePlan(due, now)
	want := []time.Time{
		due.Add(-7 * 24 * time.Hour),
		due.Add(-3 * 24 * time.Hour),
		due.Add(-24 * time.Hour),
	}
	if len(plan.Offsets) != len(want) {
		t.Fatalf("got %d offsets, want %d", len(plan.Offsets), len(want))
	}
	for i, at := range want {
		if !plan.Offsets[i].Equal(at) {
			t.Fatalf("offset %d = %v, want %v", i, plan.Offsets[i], at)
		}
		if plan.FiredOffsets[i] {
			t.Fatalf("offset %d pre-fired for a fresh plan", i)
		}
	}
}

func TestComputePlanShortLoanPreFiresElapsed(t *testing.T) {
	// A 2-day loan: the 7d and 3d marks are already in the past.
	due := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	now := due.Add(-2 * 24 * time.Hour)

	plan := ComputePlan(due, now)
	if len(plan.Offsets) != 3 {
		t.Fatalf("got %d offsets, want 3", len(plan.Offsets))
	}
	if !plan.FiredOffsets[0] || !plan.FiredOffsets[1] {
		t.Fatal("elapsed offsets not pre-marked")
	}
	if plan.FiredOffsets[2] {
		t.Fatal("1-day offset pre-marked but still in the future")
	}
}

func TestGoogleCalendarURL(t *testing.T) {
	due := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	url := GoogleCalendarURL(due, "$10.05")
	if !strings.HasPrefix(url, "https://calendar.google.com/calendar/render?") {
		t.Fatalf("unexpected url: %s", url)
	}
	if !strings.Contains(url, "20260415T120000Z") {
		t.Fatalf("due date missing from url: %s", url)
	}
	if !strings.Contains(url, "10.05") {
		t.Fatalf("repayment missing from url: %s", url)
	}
}
