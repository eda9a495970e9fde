package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Tytandoteth/magbot-test-mode/internal/analytics"
	"github.com/Tytandoteth/magbot-test-mode/internal/lending"
	"github.com/Tytandoteth/magbot-test-mode/internal/session"
)

type fakeNotifier struct {
	mu        sync.Mutex
	reminders []int64
	defaults  []int64
}

func (f *fakeNotifier) NotifyReminder(_ context.Context, chatID int64, _ *session.Loan, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders = append(f.reminders, chatID)
	return nil
}

func (f *fakeNotifier) NotifyDefault(_ context.Context, chatID int64, _ *session.Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaults = append(f.defaults, chatID)
	return nil
}

func activeLoanSession(userID, chatID int64, due time.Time) *session.Session {
	return &session.Session{
		UserID:        userID,
		ChatID:        chatID,
		WalletAddress: "0xabc",
		Verified:      true,
		ActiveLoan: &session.Loan{
			ID:              "0xloan",
			Principal:       decimal.NewFromInt(10),
			APRBasisPoints:  1250,
			DurationHours:   14 * 24,
			DueDate:         due,
			RepaymentAmount: decimal.RequireFromString("10.05"),
			MagReward:       decimal.RequireFromString("0.150"),
			Status:          session.LoanActive,
		},
	}
}

func newTestWatcher(store session.Store, n Notifier, now time.Time) *Watcher {
	lc := lending.NewLifecycle(lending.NewCatalog(), nil, 1)
	w := NewWatcher(store, lc, n, analytics.NewMemoryRecorder(), time.Minute)
	w.SetClock(func() time.Time { return now })
	return w
}

func TestSweepDefaultsOverdueLoan(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Set(ctx, activeLoanSession(1, 100, due)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	notifier := &fakeNotifier{}
	w := newTestWatcher(store, notifier, due.Add(time.Hour))
	w.Sweep(ctx)

	if len(notifier.defaults) != 1 || notifier.defaults[0] != 100 {
		t.Fatalf("default notices = %v, want [100]", notifier.defaults)
	}
	sess, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.HasActiveLoan() {
		t.Fatal("overdue loan still active after sweep")
	}

	// A second sweep finds nothing to default.
	w.Sweep(ctx)
	if len(notifier.defaults) != 1 {
		t.Fatalf("default notices after resweep = %v", notifier.defaults)
	}
}

func TestSweepFiresRemindersAtMostOnce(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	due := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)

	sess := activeLoanSession(2, 200, due)
	sess.Reminders = ComputePlan(due, due.Add(-14*24*time.Hour))
	if err := store.Set(ctx, sess); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Between the 7d and 3d marks: only the first offset is due.
	notifier := &fakeNotifier{}
	w := newTestWatcher(store, notifier, due.Add(-5*24*time.Hour))
	w.Sweep(ctx)
	if len(notifier.reminders) != 1 {
		t.Fatalf("reminders = %v, want one", notifier.reminders)
	}

	w.Sweep(ctx)
	if len(notifier.reminders) != 1 {
		t.Fatalf("reminder re-fired: %v", notifier.reminders)
	}

	stored, err := store.Get(ctx, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stored.Reminders.FiredOffsets[0] {
		t.Fatal("fired offset not persisted")
	}
	if stored.Reminders.FiredOffsets[1] || stored.Reminders.FiredOffsets[2] {
		t.Fatal("future offsets marked fired")
	}
}

// failingStore rejects writes while fail is set.
type failingStore struct {
	session.Store
	fail bool
}

func (s *failingStore) Set(ctx context.Context, sess *session.Session) error {
	if s.fail {
		return errors.New("connection reset")
	}
	return s.Store.Set(ctx, sess)
}

func TestSweepPersistsPlanBeforeSending(t *testing.T) {
	ctx := context.Background()
	mem := session.NewMemoryStore()
	due := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)

	sess := activeLoanSession(3, 300, due)
	sess.Reminders = ComputePlan(due, due.Add(-14*24*time.Hour))
	if err := mem.Set(ctx, sess); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := &failingStore{Store: mem, fail: true}
	notifier := &fakeNotifier{}
	w := newTestWatcher(store, notifier, due.Add(-5*24*time.Hour))

	// The plan cannot be persisted, so nothing may be sent.
	w.Sweep(ctx)
	if len(notifier.reminders) != 0 {
		t.Fatalf("reminder sent without persisted plan: %v", notifier.reminders)
	}

	// Store recovers; the same offset fires on the next sweep.
	store.fail = false
	w.Sweep(ctx)
	if len(notifier.reminders) != 1 {
		t.Fatalf("reminders after recovery = %v, want one", notifier.reminders)
	}

	stored, err := mem.Get(ctx, 3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stored.Reminders.FiredOffsets[0] {
		t.Fatal("fired offset not persisted")
	}
}
