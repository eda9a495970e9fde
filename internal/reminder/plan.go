// Package reminder schedules repayment reminders and drives the default
// watcher that closes out overdue loans.
package reminder

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Tytandoteth/magbot-test-mode/internal/session"
)

// offsets are how far before the due date each reminder fires, largest
// first. A loan shorter than an offset simply skips that reminder.
var offsets = []time.Duration{
	7 * 24 * time.Hour,
	3 * 24 * time.Hour,
	24 * time.Hour,
}

// ComputePlan derives the reminder plan for a due date: fire times at 7, 3
// and 1 days before, in that order. Offsets already in the past at creation
// time count as elapsed and are pre-marked so they never fire.
func ComputePlan(dueDate, now time.Time) *session.ReminderPlan {
	plan := &session.ReminderPlan{
		DueDate:      dueDate,
		Offsets:      make([]time.Time, len(offsets)),
		FiredOffsets: make([]bool, len(offsets)),
	}
	for i, off := range offsets {
		at := dueDate.Add(-off)
		plan.Offsets[i] = at
		if !at.After(now) {
			plan.FiredOffsets[i] = true
		}
	}
	return plan
}

// GoogleCalendarURL builds a prefilled calendar event link for a repayment
// due date, for users who prefer their own calendar over bot reminders.
func GoogleCalendarURL(dueDate time.Time, repayment string) string {
	start := dueDate.UTC().Format("20060102T150405Z")
	end := dueDate.UTC().Add(time.Hour).Format("20060102T150405Z")
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", "Loan repayment due")
	q.Set("dates", start+"/"+end)
	q.Set("details", fmt.Sprintf("Repay %s to close your loan.", repayment))
	return "https://calendar.google.com/calendar/render?" + q.Encode()
}
