package reasoning

import (
	"context"
	"sync"
)

// MockProvider returns canned proposals for tests and the offline demo.
type MockProvider struct {
	mu        sync.Mutex
	proposals []*Proposal
	err       error
	calls     []Observations
	next      int
}

// NewMockProvider creates a provider that cycles through the given proposals.
func NewMockProvider(proposals ...*Proposal) *MockProvider {
	return &MockProvider{proposals: proposals}
}

// FailWith makes every ProposeHypothesis call return err.
func (m *MockProvider) FailWith(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// ProposeHypothesis implements Provider.
func (m *MockProvider) ProposeHypothesis(ctx context.Context, obs Observations) (*Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, obs)

	if m.err != nil {
		return nil, m.err
	}
	if len(m.proposals) == 0 {
		return &Proposal{Statement: "unspecified failure in the affected system", Confidence: 0.5}, nil
	}
	p := m.proposals[m.next%len(m.proposals)]
	m.next++
	return p, nil
}

// Name implements Provider.
func (m *MockProvider) Name() string {
	return "mock"
}

// Calls returns the observations passed so far.
func (m *MockProvider) Calls() []Observations {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Observations, len(m.calls))
	copy(out, m.calls)
	return out
}
