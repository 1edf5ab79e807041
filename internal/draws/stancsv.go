package draws

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultMaxTreeDepth is the sampler's tree depth limit assumed when the
// caller does not say otherwise. Matches Stan's default.
const DefaultMaxTreeDepth = 10

// StanCSVOptions controls Stan CSV ingestion.
type StanCSVOptions struct {
	// MaxTreeDepth is the depth at which a reported treedepth__ counts as an
	// exceedance. Zero means DefaultMaxTreeDepth.
	MaxTreeDepth int
}

func (o StanCSVOptions) maxTreeDepth() int {
	if o.MaxTreeDepth > 0 {
		return o.MaxTreeDepth
	}
	return DefaultMaxTreeDepth
}

// Sampler-internal columns carried in Stan CSV output alongside the model
// parameters. lp__ is kept as a regular column; the rest only feed Meta.
const (
	colLogProb    = "lp__"
	colDivergent  = "divergent__"
	colTreeDepth  = "treedepth__"
	samplerSuffix = "__"
)

// LoadStanCSV reads one chain from a Stan CSV file. Comment lines (the
// config dump and timing blocks) are skipped, dotted parameter names are
// rewritten to bracketed element names ("theta.2" -> "theta[2]"), and the
// divergent__/treedepth__ columns become per-iteration Meta.
func LoadStanCSV(path string, opts StanCSVOptions) (*Chain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stancsv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.Comment = '#'
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("stancsv: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("stancsv: %s has no header row", path)
	}

	header := records[0]
	rows := records[1:]
	n := len(rows)

	divergentCol, treeDepthCol := -1, -1
	type keptColumn struct {
		name string
		pos  int
	}
	var kept []keptColumn
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		switch {
		case name == colDivergent:
			divergentCol = i
		case name == colTreeDepth:
			treeDepthCol = i
		case name == colLogProb:
			kept = append(kept, keptColumn{name: name, pos: i})
		case strings.HasSuffix(name, samplerSuffix):
			// stepsize__, n_leapfrog__, energy__ etc: engine internals.
		default:
			kept = append(kept, keptColumn{name: bracketName(name), pos: i})
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("stancsv: %s has no parameter columns", path)
	}

	chain := &Chain{Columns: make([]Column, len(kept))}
	for j, kc := range kept {
		chain.Columns[j] = Column{Name: kc.name, Values: make([]float64, n)}
	}
	if divergentCol >= 0 || treeDepthCol >= 0 {
		chain.Meta = make([]Meta, n)
	}

	maxDepth := opts.maxTreeDepth()
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("stancsv: %s row %d has %d fields, expected %d", path, i+2, len(row), len(header))
		}
		for j, kc := range kept {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[kc.pos]), 64)
			if err != nil {
				return nil, fmt.Errorf("stancsv: %s row %d column %s: %w", path, i+2, kc.name, err)
			}
			chain.Columns[j].Values[i] = v
		}
		if chain.Meta != nil {
			if divergentCol >= 0 {
				chain.Meta[i].Divergent = strings.TrimSpace(row[divergentCol]) == "1"
			}
			if treeDepthCol >= 0 {
				depth, err := strconv.ParseFloat(strings.TrimSpace(row[treeDepthCol]), 64)
				if err != nil {
					return nil, fmt.Errorf("stancsv: %s row %d column %s: %w", path, i+2, colTreeDepth, err)
				}
				chain.Meta[i].TreeDepthExceeded = int(depth) >= maxDepth
			}
		}
	}

	return chain, nil
}

// LoadStanCSVs reads one file per chain and assembles a DrawSet, enforcing
// that all chains agree on iteration count and parameter schema.
func LoadStanCSVs(paths []string, opts StanCSVOptions) (*DrawSet, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("stancsv: no input files")
	}
	chains := make([]*Chain, 0, len(paths))
	for _, p := range paths {
		c, err := LoadStanCSV(p, opts)
		if err != nil {
			return nil, err
		}
		chains = append(chains, c)
	}
	ds, err := New(chains...)
	if err != nil {
		return nil, fmt.Errorf("stancsv: %w", err)
	}
	return ds, nil
}

// bracketName rewrites Stan's dotted element naming to the bracketed form
// used everywhere else: "theta.2" -> "theta[2]", "Sigma.1.2" -> "Sigma[1,2]".
func bracketName(name string) string {
	dot := strings.IndexByte(name, '.')
	if dot < 0 {
		return name
	}
	base := name[:dot]
	indices := strings.Split(name[dot+1:], ".")
	for _, ix := range indices {
		if _, err := strconv.Atoi(ix); err != nil {
			// Not an index suffix, leave the name alone.
			return name
		}
	}
	return base + "[" + strings.Join(indices, ",") + "]"
}
