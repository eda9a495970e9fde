package analytics

import (
	"context"
	"sync"
)

type memoryEvent struct {
	userID int64
	kind   string
	meta   map[string]any
}

// MemoryRecorder keeps events in process memory. Development mode only.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []memoryEvent
}

// NewMemoryRecorder returns an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Track(_ context.Context, userID int64, kind string, meta map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, memoryEvent{userID: userID, kind: kind, meta: meta})
}

func (r *MemoryRecorder) Aggregate(_ context.Context) (Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s Summary
	users := make(map[int64]struct{})
	var amountSum float64
	for _, ev := range r.events {
		users[ev.userID] = struct{}{}
		switch ev.kind {
		case KindWalletCreated:
			s.WalletsCreated++
		case KindVerificationCompleted:
			s.Verified++
		case KindLoanConfirmed:
			s.LoansIssued++
			if v, ok := ev.meta["amount_usd"].(int); ok {
				amountSum += float64(v)
			}
		case KindLoanRepaid:
			s.LoansRepaid++
		case KindLoanDefaulted:
			s.LoansDefaulted++
		}
	}
	s.TotalUsers = int64(len(users))
	if s.LoansIssued > 0 {
		s.AvgLoanUSD = amountSum / float64(s.LoansIssued)
	}
	return s, nil
}
