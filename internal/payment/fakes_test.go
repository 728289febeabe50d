package payment

import (
	"context"
	"errors"
	"sync"

	"github.com/wichananm65/rosilias-store/internal/order"
)

type fakeProcessor struct {
	mu       sync.Mutex
	intents  map[string]Intent
	created  []IntentRequest
	calls    int
	failWith error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{intents: map[string]Intent{}}
}

func (f *fakeProcessor) CreateIntent(_ context.Context, req IntentRequest) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failWith != nil {
		return Intent{}, f.failWith
	}
	f.created = append(f.created, req)
	in := Intent{ID: "pi_test", ClientSecret: "pi_test_secret_abc", Status: IntentRequiresPaymentMethod, AmountCents: req.AmountCents, Currency: req.Currency}
	f.intents[in.ID] = in
	return in, nil
}

func (f *fakeProcessor) Retrieve(_ context.Context, id string) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failWith != nil {
		return Intent{}, f.failWith
	}
	in, ok := f.intents[id]
	if !ok {
		return Intent{}, errors.New("no such payment_intent")
	}
	return in, nil
}

func (f *fakeProcessor) Confirm(_ context.Context, id string, _ ConfirmRequest) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failWith != nil {
		return Intent{}, f.failWith
	}
	in := f.intents[id]
	in.Status = IntentSucceeded
	f.intents[id] = in
	return in, nil
}

func (f *fakeProcessor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []StatusChanged
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func newOrders(t interface{ Helper() }) *order.Service {
	t.Helper()
	return order.NewService(order.NewInMemoryRepository(), nil)
}
