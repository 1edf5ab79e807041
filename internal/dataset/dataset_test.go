package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "data.csv", "group,events,trials\ncontrol,39,674\ntreatment,22,680\n")

	rows, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "control", rows[0]["group"])
	assert.Equal(t, "680", rows[1]["trials"])
}

func TestLoadCSV_Errors(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)

	path := writeFile(t, "empty.csv", "")
	_, err = LoadCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestNumericColumn(t *testing.T) {
	path := writeFile(t, "data.csv", "y,label\n0.5,a\n1.5,b\n-2,c\n")
	rows, err := LoadCSV(path)
	require.NoError(t, err)

	values, err := NumericColumn(rows, "y")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5, -2}, values)

	_, err = NumericColumn(rows, "label")
	require.Error(t, err)
	_, err = NumericColumn(rows, "missing")
	require.Error(t, err)
}

func TestFromCSV(t *testing.T) {
	path := writeFile(t, "data.csv", "temp,year\n8.5,1952\n9.0,1953\n7.9,1954\n")

	data, err := FromCSV(path, map[string]string{"y": "temp", "x": "year"}, "N")
	require.NoError(t, err)

	assert.Equal(t, 3, data["N"])
	assert.Equal(t, []float64{8.5, 9.0, 7.9}, data["y"])
	assert.Equal(t, []float64{1952, 1953, 1954}, data["x"])
}

func TestLoadDataBlock_JSON(t *testing.T) {
	path := writeFile(t, "data.json", `{"N": 4, "y": [0, 1, 1, 0]}`)

	data, err := LoadDataBlock(path)
	require.NoError(t, err)
	assert.Equal(t, float64(4), data["N"])
}

func TestLoadDataBlock_YAML(t *testing.T) {
	path := writeFile(t, "data.yaml", "N: 4\ny: [0, 1, 1, 0]\n")

	data, err := LoadDataBlock(path)
	require.NoError(t, err)
	assert.Equal(t, 4, data["N"])
}

func TestLoadDataBlock_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "data.txt", "N: 4\n")
	_, err := LoadDataBlock(path)
	require.Error(t, err)
}

func TestDecode(t *testing.T) {
	type opts struct {
		MaxTreeDepth int     `mapstructure:"max_tree_depth"`
		StepSize     float64 `mapstructure:"step_size"`
	}

	var got opts
	err := Decode(map[string]any{"max_tree_depth": 12, "step_size": 1}, &got)
	require.NoError(t, err)
	assert.Equal(t, 12, got.MaxTreeDepth)
	assert.Equal(t, 1.0, got.StepSize)
}
