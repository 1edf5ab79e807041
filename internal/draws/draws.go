package draws

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// Meta carries the sampler's per-iteration metadata. The pipeline only
// aggregates these flags; detecting them is the engine's job.
type Meta struct {
	Divergent         bool `json:"divergent,omitempty"`
	TreeDepthExceeded bool `json:"tree_depth_exceeded,omitempty"`
}

// Column is one flattened parameter's ordered values within a chain.
// Vector parameters appear as one column per element, named like "theta[2]".
type Column struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Chain is the ordered output of one sampler run instance.
// Meta may be nil when the engine supplies no per-iteration metadata.
type Chain struct {
	Columns []Column
	Meta    []Meta
}

// Len returns the iteration count of the chain.
func (c *Chain) Len() int {
	if len(c.Columns) == 0 {
		return 0
	}
	return len(c.Columns[0].Values)
}

func (c *Chain) validate() error {
	n := c.Len()
	seen := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		if col.Name == "" {
			return fmt.Errorf("draws: chain has an unnamed column")
		}
		if seen[col.Name] {
			return fmt.Errorf("draws: duplicate column %q", col.Name)
		}
		seen[col.Name] = true
		if len(col.Values) != n {
			return fmt.Errorf("draws: column %q has %d values, expected %d", col.Name, len(col.Values), n)
		}
	}
	if c.Meta != nil && len(c.Meta) != n {
		return fmt.Errorf("draws: chain has %d metadata entries, expected %d", len(c.Meta), n)
	}
	return nil
}

// Param describes one model parameter in a DrawSet's schema. Size is 1 for
// scalars and the element count for flattened vector parameters.
type Param struct {
	Name string
	Size int
}

// DrawSet is the chain-preserving canonical representation of a sampling
// run's output: ordered chains, each an ordered sequence of iterations over
// an identical parameter schema. It is read-only once assembled; derived
// views (merged, permuted) copy rather than alias.
type DrawSet struct {
	chains   []*Chain
	elements []string
	index    []map[string]int // per chain: element name -> column position
}

// New assembles a DrawSet from one or more chains, validating that every
// chain has the same iteration count and the same column schema.
func New(chains ...*Chain) (*DrawSet, error) {
	if len(chains) == 0 {
		return nil, fmt.Errorf("draws: at least one chain is required")
	}

	for i, c := range chains {
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("chain %d: %w", i, err)
		}
	}

	first := chains[0]
	elements := make([]string, 0, len(first.Columns))
	for _, col := range first.Columns {
		elements = append(elements, col.Name)
	}

	index := make([]map[string]int, len(chains))
	for i, c := range chains {
		if c.Len() != first.Len() {
			return nil, fmt.Errorf("draws: chain %d has %d iterations, chain 0 has %d", i, c.Len(), first.Len())
		}
		if len(c.Columns) != len(elements) {
			return nil, fmt.Errorf("draws: chain %d has %d columns, chain 0 has %d", i, len(c.Columns), len(elements))
		}
		idx := make(map[string]int, len(c.Columns))
		for j, col := range c.Columns {
			idx[col.Name] = j
		}
		for _, name := range elements {
			if _, ok := idx[name]; !ok {
				return nil, fmt.Errorf("draws: chain %d is missing column %q", i, name)
			}
		}
		index[i] = idx
	}

	return &DrawSet{chains: chains, elements: elements, index: index}, nil
}

// Chains returns the number of chains.
func (ds *DrawSet) Chains() int { return len(ds.chains) }

// Iterations returns the per-chain iteration count.
func (ds *DrawSet) Iterations() int { return ds.chains[0].Len() }

// TotalDraws returns the draw count across all chains.
func (ds *DrawSet) TotalDraws() int { return ds.Chains() * ds.Iterations() }

// Elements returns the flattened parameter names in stored column order.
func (ds *DrawSet) Elements() []string {
	out := make([]string, len(ds.elements))
	copy(out, ds.elements)
	return out
}

// HasElement reports whether the schema contains the flattened name.
func (ds *DrawSet) HasElement(name string) bool {
	_, ok := ds.index[0][name]
	return ok
}

// Column returns one chain's values for a flattened parameter name.
// The returned slice is shared with the DrawSet and must not be modified.
func (ds *DrawSet) Column(chain int, element string) ([]float64, error) {
	if chain < 0 || chain >= len(ds.chains) {
		return nil, fmt.Errorf("draws: chain index %d out of range [0,%d)", chain, len(ds.chains))
	}
	pos, ok := ds.index[chain][element]
	if !ok {
		return nil, fmt.Errorf("draws: unknown parameter %q", element)
	}
	return ds.chains[chain].Columns[pos].Values, nil
}

// Merged returns all chains' values for a parameter concatenated in stored
// chain order, each chain's draw order preserved.
func (ds *DrawSet) Merged(element string) ([]float64, error) {
	out := make([]float64, 0, ds.TotalDraws())
	for i := range ds.chains {
		col, err := ds.Column(i, element)
		if err != nil {
			return nil, err
		}
		out = append(out, col...)
	}
	return out, nil
}

// Permuted returns a seeded shuffle of the merged values. The canonical
// representation stays chain-preserving; permuted views are derived on demand.
func (ds *DrawSet) Permuted(element string, seed int64) ([]float64, error) {
	merged, err := ds.Merged(element)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(merged), func(i, j int) {
		merged[i], merged[j] = merged[j], merged[i]
	})
	return merged, nil
}

// Iteration returns the full flattened parameter mapping for one draw.
func (ds *DrawSet) Iteration(chain, iter int) (map[string]float64, error) {
	if chain < 0 || chain >= len(ds.chains) {
		return nil, fmt.Errorf("draws: chain index %d out of range [0,%d)", chain, len(ds.chains))
	}
	c := ds.chains[chain]
	if iter < 0 || iter >= c.Len() {
		return nil, fmt.Errorf("draws: iteration %d out of range [0,%d)", iter, c.Len())
	}
	out := make(map[string]float64, len(c.Columns))
	for _, col := range c.Columns {
		out[col.Name] = col.Values[iter]
	}
	return out, nil
}

// DivergenceCount returns the total number of divergent transitions reported
// by the sampler across all chains.
func (ds *DrawSet) DivergenceCount() int {
	n := 0
	for _, c := range ds.chains {
		for _, m := range c.Meta {
			if m.Divergent {
				n++
			}
		}
	}
	return n
}

// TreeDepthExceededCount returns the total number of iterations that hit the
// sampler's maximum tree depth.
func (ds *DrawSet) TreeDepthExceededCount() int {
	n := 0
	for _, c := range ds.chains {
		for _, m := range c.Meta {
			if m.TreeDepthExceeded {
				n++
			}
		}
	}
	return n
}

// Params groups the flattened element names back into the parameter schema,
// in first-appearance order. "theta[1]", "theta[2]" become {theta, 2}.
func (ds *DrawSet) Params() []Param {
	var params []Param
	pos := make(map[string]int)
	for _, name := range ds.elements {
		base := BaseName(name)
		if i, ok := pos[base]; ok {
			params[i].Size++
			continue
		}
		pos[base] = len(params)
		params = append(params, Param{Name: base, Size: 1})
	}
	return params
}

// BaseName strips the index suffix from a flattened element name.
func BaseName(element string) string {
	if i := strings.IndexByte(element, '['); i >= 0 {
		return element[:i]
	}
	return element
}

// ElementName builds the flattened name for one element of a vector
// parameter, using 1-based indices.
func ElementName(base string, indices ...int) string {
	if len(indices) == 0 {
		return base
	}
	parts := make([]string, len(indices))
	for i, ix := range indices {
		parts[i] = strconv.Itoa(ix)
	}
	return base + "[" + strings.Join(parts, ",") + "]"
}

// VectorElements returns the flattened element names belonging to a base
// parameter, sorted by index.
func (ds *DrawSet) VectorElements(base string) []string {
	var names []string
	for _, name := range ds.elements {
		if BaseName(name) == base {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return elementIndex(names[i]) < elementIndex(names[j])
	})
	return names
}

func elementIndex(element string) int {
	open := strings.IndexByte(element, '[')
	if open < 0 {
		return 0
	}
	close := strings.IndexByte(element, ']')
	if close < open {
		return 0
	}
	idx := element[open+1 : close]
	if comma := strings.IndexByte(idx, ','); comma >= 0 {
		idx = idx[:comma]
	}
	n, err := strconv.Atoi(idx)
	if err != nil {
		return 0
	}
	return n
}
