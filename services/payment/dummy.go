package paymentsvc

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/elimuhub/elimu/core/enroll"
)

// DummyProvider approves every order it created. It backs local development
// and tests, where no real payment rails are reachable.
type DummyProvider struct {
	mu     sync.Mutex
	orders map[string]enroll.ProviderOrder

	// Decline forces subsequent captures to fail.
	Decline bool
}

var _ enroll.PaymentProvider = (*DummyProvider)(nil)

func NewDummyProvider() *DummyProvider {
	return &DummyProvider{orders: make(map[string]enroll.ProviderOrder)}
}

func (p *DummyProvider) CreateOrder(ctx context.Context, ord enroll.ProviderOrder) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref := uuid.New().String()
	p.orders[ref] = ord
	return ref, "", nil
}

func (p *DummyProvider) CaptureOrder(ctx context.Context, ref string) (enroll.CaptureResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ord, ok := p.orders[ref]
	if !ok || p.Decline {
		return enroll.CaptureResult{Captured: false}, nil
	}
	return enroll.CaptureResult{Captured: true, Amount: ord.Amount, Currency: ord.Currency}, nil
}
