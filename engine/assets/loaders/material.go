package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/vetrina/engine/resources"
)

// MaterialLoader parses TOML material descriptions:
//
//	name = "brick"
//	base_color = [0.8, 0.3, 0.2, 1.0]
//	metallic = 0.0
//	roughness = 0.7
type MaterialLoader struct{}

func (ml *MaterialLoader) Load(path string) (resources.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open material '%s': %w", path, err)
	}

	material := &resources.Material{
		// Sensible surface defaults for files that only set a color.
		BaseColor: [4]float32{1, 1, 1, 1},
		Roughness: 0.5,
	}
	if err := toml.Unmarshal(raw, material); err != nil {
		return nil, fmt.Errorf("parse material '%s': %w", path, err)
	}
	if material.Name == "" {
		material.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &resources.MaterialData{Material: material}, nil
}

func (ml *MaterialLoader) Unload(resources.Data) error {
	return nil
}
