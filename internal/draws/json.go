package draws

import "encoding/json"

type chainJSON struct {
	Columns []Column `json:"columns"`
	Meta    []Meta   `json:"meta,omitempty"`
}

type drawSetJSON struct {
	Chains []chainJSON `json:"chains"`
}

// MarshalJSON serializes the DrawSet in a chain-preserving layout.
func (ds *DrawSet) MarshalJSON() ([]byte, error) {
	out := drawSetJSON{Chains: make([]chainJSON, len(ds.chains))}
	for i, c := range ds.chains {
		out.Chains[i] = chainJSON{Columns: c.Columns, Meta: c.Meta}
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds a DrawSet, re-running the assembly validation.
func (ds *DrawSet) UnmarshalJSON(data []byte) error {
	var in drawSetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	chains := make([]*Chain, len(in.Chains))
	for i, c := range in.Chains {
		chains[i] = &Chain{Columns: c.Columns, Meta: c.Meta}
	}
	rebuilt, err := New(chains...)
	if err != nil {
		return err
	}
	*ds = *rebuilt
	return nil
}
