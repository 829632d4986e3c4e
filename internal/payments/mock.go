package payments

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockGateway approves every charge unless Decline is set. It records the
// requests it saw.
type MockGateway struct {
	Decline bool

	mu       sync.Mutex
	requests []ChargeRequest
}

func NewMockGateway(decline bool) *MockGateway {
	return &MockGateway{Decline: decline}
}

func (g *MockGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.Decline {
		return nil, ErrDeclined
	}
	return &ChargeResult{
		Reference: "mock-" + uuid.NewString(),
		Status:    "capture",
	}, nil
}

func (g *MockGateway) Requests() []ChargeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ChargeRequest, len(g.requests))
	copy(out, g.requests)
	return out
}
