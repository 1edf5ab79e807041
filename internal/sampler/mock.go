package sampler

import (
	"context"
	"math/rand"

	"github.com/postcheck/postcheck/internal/draws"
)

// MockEngine is a deterministic in-process engine for tests and demos. It
// draws every parameter from a unit normal; the same request always yields
// the same DrawSet.
type MockEngine struct {
	params []draws.Param
}

// NewMockEngine creates a mock engine producing draws for the given schema.
// A nil schema defaults to a single scalar parameter "theta".
func NewMockEngine(params []draws.Param) *MockEngine {
	if len(params) == 0 {
		params = []draws.Param{{Name: "theta", Size: 1}}
	}
	return &MockEngine{params: params}
}

func (m *MockEngine) Initialize(ctx context.Context) error {
	return nil
}

func (m *MockEngine) Sample(ctx context.Context, req *SampleRequest) (*draws.DrawSet, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	chains := make([]*draws.Chain, req.Chains)
	for c := 0; c < req.Chains; c++ {
		rng := rand.New(rand.NewSource(req.Seed + int64(c)))
		chain := &draws.Chain{Meta: make([]draws.Meta, req.Iterations)}
		for _, p := range m.params {
			for e := 0; e < p.Size; e++ {
				name := p.Name
				if p.Size > 1 {
					name = draws.ElementName(p.Name, e+1)
				}
				values := make([]float64, req.Iterations)
				for i := range values {
					values[i] = rng.NormFloat64()
				}
				chain.Columns = append(chain.Columns, draws.Column{Name: name, Values: values})
			}
		}
		chains[c] = chain
	}

	return draws.New(chains...)
}

func (m *MockEngine) Shutdown(ctx context.Context) error {
	return nil
}
