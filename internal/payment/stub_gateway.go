package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// OutcomeSource decides what a stub confirmation returns. Pluggable so tests
// can drive deterministic outcomes.
type OutcomeSource interface {
	Outcome() Confirmation
}

// RandomOutcome approximates a live gateway: mostly successes with a small
// tail of declines and transient errors.
type RandomOutcome struct{}

func (RandomOutcome) Outcome() Confirmation {
	return calcOutcome(rand.Intn(101)) // 101 because Intn is exclusive of the upper bound
}

func calcOutcome(n int) Confirmation {
	switch {
	case n < 90:
		return Confirmation{Status: StatusSucceeded}
	case n < 93:
		return Confirmation{Status: StatusProcessing}
	case n < 95:
		return Confirmation{Status: StatusRequiresAction}
	case n < 98:
		return Confirmation{Status: StatusFailed, Err: &GatewayError{Kind: KindCardDeclined, Message: "card declined"}}
	default:
		return Confirmation{Status: StatusFailed, Err: &GatewayError{Kind: KindAPIError, Message: "gateway unavailable"}}
	}
}

// StubGateway is an in-process gateway for local development. Intents live in
// memory and confirmations come from the outcome source.
type StubGateway struct {
	mu      sync.Mutex
	source  OutcomeSource
	intents map[string]int64
	seq     int
}

func NewStubGateway(source OutcomeSource) *StubGateway {
	return &StubGateway{
		source:  source,
		intents: make(map[string]int64),
	}
}

func (g *StubGateway) CreateIntent(_ context.Context, amount int64, _ string, _ Metadata) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("pi_stub_%d_%d", time.Now().UnixNano(), g.seq)
	g.intents[id] = amount
	return &Intent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (g *StubGateway) ConfirmIntent(_ context.Context, intentID string) (*Confirmation, error) {
	g.mu.Lock()
	_, known := g.intents[intentID]
	g.mu.Unlock()
	if !known {
		return nil, &GatewayError{Kind: KindAPIError, Message: "unknown payment intent " + intentID}
	}
	outcome := g.source.Outcome()
	return &outcome, nil
}

// ChargedAmount exposes what an intent was created for; used by tests to
// assert the snapshot invariant.
func (g *StubGateway) ChargedAmount(intentID string) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	amount, ok := g.intents[intentID]
	return amount, ok
}
