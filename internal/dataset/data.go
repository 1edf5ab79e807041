package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// LoadDataBlock reads a model data block from a JSON or YAML file into a
// name-to-value mapping ready to hand to a sampling engine.
func LoadDataBlock(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}

	var data map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("dataset: parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("dataset: parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("dataset: %s: unsupported data file extension %q", path, ext)
	}
	return data, nil
}

// Decode maps an untyped configuration or data mapping onto a typed struct,
// with weak type conversion so YAML integers satisfy float fields and vice
// versa.
func Decode(in map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("dataset: build decoder: %w", err)
	}
	if err := decoder.Decode(in); err != nil {
		return fmt.Errorf("dataset: decode: %w", err)
	}
	return nil
}
