package assetpack

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReadFile reads an asset pack from a YAML file. The result still goes
// through Load for reference checking before any component consumes it.
func ReadFile(path string) (*AssetPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset pack: %w", err)
	}

	var pack AssetPack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse asset pack: %w", err)
	}

	if pack.ID == "" {
		return nil, fmt.Errorf("asset pack %s has no id", path)
	}

	return &pack, nil
}

// LoadFile reads and indexes an asset pack in one step.
func LoadFile(path string) (*Index, error) {
	pack, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(pack)
}
