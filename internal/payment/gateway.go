// Package payment defines the seam between booking orchestration and a
// payment provider.
package payment

import (
	"context"
	"math/rand/v2"
)

type Outcome int

const (
	Declined Outcome = iota
	Approved
)

func (o Outcome) String() string {
	if o == Approved {
		return "approved"
	}
	return "declined"
}

type ChargeRequest struct {
	Amount        float64
	Currency      string
	Method        string
	CardLastFour  *string
	CustomerEmail string
}

// Gateway charges a customer. A decline is an Outcome, not an error; errors
// are reserved for provider faults.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (Outcome, error)
}

// DefaultApprovalRate is the share of charges the simulated gateway approves.
const DefaultApprovalRate = 0.9

// SimulatedGateway stands in for a real provider. It approves every charge
// when ForceSuccess is set, otherwise it approves at random with
// ApprovalRate probability.
type SimulatedGateway struct {
	ForceSuccess bool
	ApprovalRate float64

	draw func() float64
}

type SimulatedOption func(*SimulatedGateway)

// WithDraw replaces the uniform [0,1) random source.
func WithDraw(draw func() float64) SimulatedOption {
	return func(g *SimulatedGateway) {
		g.draw = draw
	}
}

func NewSimulatedGateway(forceSuccess bool, opts ...SimulatedOption) *SimulatedGateway {
	g := &SimulatedGateway{
		ForceSuccess: forceSuccess,
		ApprovalRate: DefaultApprovalRate,
		draw:         rand.Float64,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *SimulatedGateway) Charge(ctx context.Context, _ ChargeRequest) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Declined, err
	}
	if g.ForceSuccess {
		return Approved, nil
	}
	if g.draw() < g.ApprovalRate {
		return Approved, nil
	}
	return Declined, nil
}

var _ Gateway = (*SimulatedGateway)(nil)
