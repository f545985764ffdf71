package checkout

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	ReasonDeclined          = "Tarjeta rechazada"
	ReasonInsufficientFunds = "Fondos insuficientes"
	ReasonConnection        = "Error de conexión"

	DefaultPaymentDelay = 2 * time.Second
)

// Outcome is the result of one simulated charge.
type Outcome struct {
	Success bool
	Reason  string
}

type scenario struct {
	outcome     Outcome
	probability float64
}

var scenarios = []scenario{
	{outcome: Outcome{Success: true}, probability: 0.85},
	{outcome: Outcome{Reason: ReasonDeclined}, probability: 0.10},
	{outcome: Outcome{Reason: ReasonInsufficientFunds}, probability: 0.03},
	{outcome: Outcome{Reason: ReasonConnection}, probability: 0.02},
}

// Simulator stands in for a payment gateway. It waits a fixed delay and
// then draws an outcome from a fixed distribution.
type Simulator struct {
	mu    sync.Mutex
	float func() float64
	delay time.Duration
	sleep func(time.Duration)
}

// NewSimulator seeds from the clock when rng is nil.
func NewSimulator(rng *rand.Rand, delay time.Duration) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{float: rng.Float64, delay: delay, sleep: time.Sleep}
}

// Draw picks an outcome without waiting.
func (s *Simulator) Draw() Outcome {
	s.mu.Lock()
	r := s.float()
	s.mu.Unlock()

	acc := 0.0
	for _, sc := range scenarios {
		acc += sc.probability
		if r <= acc {
			return sc.outcome
		}
	}
	return Outcome{Success: true}
}

// Process waits the configured delay and draws. ctx is only checked before
// the wait starts; a started charge always runs to completion.
func (s *Simulator) Process(ctx context.Context) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if s.delay > 0 {
		s.sleep(s.delay)
	}
	return s.Draw(), nil
}
