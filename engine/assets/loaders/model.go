package loaders

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spaghettifunk/vetrina/engine/resources"
)

// ModelLoader extracts the geometry summary a preview needs (vertex count
// and bounds) from Wavefront OBJ files. Other formats fall back to a unit
// bounding box so they still render a placeholder.
type ModelLoader struct{}

func (ml *ModelLoader) Load(path string) (resources.Data, error) {
	format := resources.ModelFormatForPath(path)
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if format != resources.ModelFormatOBJ {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("open model '%s': %w", path, err)
		}
		return &resources.ModelData{
			Model: &resources.Model{
				Name:   name,
				Format: format,
				Min:    [3]float32{-0.5, -0.5, -0.5},
				Max:    [3]float32{0.5, 0.5, 0.5},
			},
		}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model '%s': %w", path, err)
	}
	defer f.Close()

	model := &resources.Model{Name: name, Format: format}
	first := true

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] != "v" {
			continue
		}
		var v [3]float32
		bad := false
		for i := 0; i < 3; i++ {
			parsed, err := strconv.ParseFloat(fields[i+1], 32)
			if err != nil {
				bad = true
				break
			}
			v[i] = float32(parsed)
		}
		if bad {
			continue
		}

		model.VertexCount++
		if first {
			model.Min, model.Max = v, v
			first = false
			continue
		}
		for i := 0; i < 3; i++ {
			if v[i] < model.Min[i] {
				model.Min[i] = v[i]
			}
			if v[i] > model.Max[i] {
				model.Max[i] = v[i]
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read model '%s': %w", path, err)
	}
	if model.VertexCount == 0 {
		return nil, fmt.Errorf("model '%s' contains no vertices", path)
	}

	return &resources.ModelData{Model: model}, nil
}

func (ml *ModelLoader) Unload(resources.Data) error {
	return nil
}
