package sampler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postcheck/postcheck/internal/draws"
)

func TestMockEngine_Deterministic(t *testing.T) {
	engine := NewMockEngine(nil)
	ctx := context.Background()
	require.NoError(t, engine.Initialize(ctx))
	defer engine.Shutdown(ctx) //nolint:errcheck

	req := &SampleRequest{Model: "mock", Seed: 42, Chains: 2, Iterations: 50}

	ds1, err := engine.Sample(ctx, req)
	require.NoError(t, err)
	ds2, err := engine.Sample(ctx, req)
	require.NoError(t, err)

	m1, err := ds1.Merged("theta")
	require.NoError(t, err)
	m2, err := ds2.Merged("theta")
	require.NoError(t, err)
	assert.Equal(t, m1, m2)

	assert.Equal(t, 2, ds1.Chains())
	assert.Equal(t, 50, ds1.Iterations())
}

func TestMockEngine_VectorSchema(t *testing.T) {
	engine := NewMockEngine([]draws.Param{{Name: "mu", Size: 1}, {Name: "beta", Size: 3}})

	ds, err := engine.Sample(context.Background(), &SampleRequest{
		Model: "mock", Seed: 1, Chains: 1, Iterations: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"mu", "beta[1]", "beta[2]", "beta[3]"}, ds.Elements())
}

func TestSampleRequest_Validation(t *testing.T) {
	engine := NewMockEngine(nil)
	ctx := context.Background()

	cases := []*SampleRequest{
		{Chains: 2, Iterations: 10},                         // no model
		{Model: "m", Chains: 0, Iterations: 10},             // no chains
		{Model: "m", Chains: 2, Iterations: 0},              // no iterations
		{Model: "m", Chains: 2, Iterations: 10, Warmup: -1}, // bad warmup
	}
	for _, req := range cases {
		_, err := engine.Sample(ctx, req)
		assert.Error(t, err, "%+v", req)
	}
}

// fakeStanBinary writes a script that mimics a compiled CmdStan model: it
// finds the output file=... argument and emits a minimal Stan CSV. When fail
// is set the script reports an initialization failure instead.
func fakeStanBinary(t *testing.T, fail bool) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake model binary is a shell script")
	}

	script := `#!/bin/sh
out=""
for a in "$@"; do
  case "$a" in
    file=*) out="${a#file=}" ;;
  esac
done
cat > "$out" <<'EOF'
# fake model
lp__,divergent__,treedepth__,theta
-7.0,0,2,0.25
-7.1,0,2,0.30
-7.2,1,3,0.20
EOF
`
	if fail {
		script = `#!/bin/sh
echo "initialization failed" >&2
exit 1
`
	}

	path := filepath.Join(t.TempDir(), "model")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestStanEngine_Sample(t *testing.T) {
	model := fakeStanBinary(t, false)
	engine := NewStanEngine()
	ctx := context.Background()
	require.NoError(t, engine.Initialize(ctx))
	defer engine.Shutdown(ctx) //nolint:errcheck

	ds, err := engine.Sample(ctx, &SampleRequest{
		Model:      model,
		Data:       map[string]any{"N": 3, "y": []float64{0, 1, 1}},
		Seed:       42,
		Chains:     2,
		Iterations: 3,
		Warmup:     1,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Chains())
	assert.Equal(t, 3, ds.Iterations())
	assert.True(t, ds.HasElement("theta"))
	assert.Equal(t, 2, ds.DivergenceCount()) // one per chain from the fixture
}

func TestStanEngine_FailureSurfacesVerbatim(t *testing.T) {
	model := fakeStanBinary(t, true)
	engine := NewStanEngine()
	ctx := context.Background()
	defer engine.Shutdown(ctx) //nolint:errcheck

	_, err := engine.Sample(ctx, &SampleRequest{
		Model: model, Seed: 1, Chains: 1, Iterations: 3,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSamplingFailed)
	assert.Contains(t, err.Error(), "initialization failed")
}

func TestStanEngine_MissingModel(t *testing.T) {
	engine := NewStanEngine()
	_, err := engine.Sample(context.Background(), &SampleRequest{
		Model: filepath.Join(t.TempDir(), "nope"), Seed: 1, Chains: 1, Iterations: 3,
	})
	require.Error(t, err)
}

func TestWriteStanData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	data := map[string]any{
		"N": 4,
		"y": []float64{1, 0, 1, 1},
		"X": [][]float64{{1, 2}, {3, 4}},
	}
	require.NoError(t, writeStanData(path, data))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, float64(4), decoded["N"])
	assert.Len(t, decoded["y"], 4)
}
