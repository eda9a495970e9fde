package chain

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MockIssuer simulates loan issuance for development mode. Each call yields
// a unique tx ref after a short delay so the bot's loading UI has something
// to wait on.
type MockIssuer struct {
	Delay  time.Duration
	issued atomic.Int64
}

// IssueLoan returns a synthetic transaction reference.
func (m *MockIssuer) IssueLoan(ctx context.Context, deskID int64, amountUSD int, durationHours, aprBasisPoints int64) (string, error) {
	delay := m.Delay
	if delay <= 0 {
		delay = time.Second
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	n := m.issued.Add(1)
	return fmt.Sprintf("0xmock-loan-%d-%s", n, uuid.New().String()[:8]), nil
}

// Issued reports how many loans this mock has handed out.
func (m *MockIssuer) Issued() int64 {
	return m.issued.Load()
}
