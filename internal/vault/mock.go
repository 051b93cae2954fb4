package vault

import (
	"context"
	"errors"
	"sync"
)

var ErrMockFailure = errors.New("vault operation failed")

// Mock is a test vault holding principal at a fixed yield in basis points.
// Shares are issued 1:1 against deposits; redemption pays shares plus the
// configured yield. Any operation can be forced to fail.
type Mock struct {
	mu       sync.Mutex
	YieldBps int64
	Fail     bool

	totalShares int64
}

func NewMock(yieldBps int64) *Mock {
	return &Mock{YieldBps: yieldBps}
}

func (m *Mock) Deposit(ctx context.Context, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return 0, ErrMockFailure
	}
	if amount < 0 {
		return 0, ErrMockFailure
	}
	m.totalShares += amount
	return amount, nil
}

func (m *Mock) Redeem(ctx context.Context, shares int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return 0, ErrMockFailure
	}
	if shares < 0 || shares > m.totalShares {
		return 0, ErrMockFailure
	}
	m.totalShares -= shares
	return m.value(shares), nil
}

func (m *Mock) ValueOf(ctx context.Context, shares int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return 0, ErrMockFailure
	}
	return m.value(shares), nil
}

func (m *Mock) value(shares int64) int64 {
	return shares + shares*m.YieldBps/10000
}
