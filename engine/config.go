package engine

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/vetrina/engine/systems"
)

// Config is the engine's TOML configuration:
//
//	log_level = "info"
//	tick_rate = 60
//
//	[assets]
//	dir = "assets"
//
//	[loader]
//	max_concurrent = 4
//
//	[preview]
//	resolutions = [64, 256]
//	render_resolution = 512
//	render_layer = 1
//
//	[cache]
//	root = "thumbnails"
//
//	[jobs]
//	workers = 4
//	queue_size = 64
type Config struct {
	LogLevel string `toml:"log_level"`
	TickRate int    `toml:"tick_rate"`

	Assets struct {
		Dir string `toml:"dir"`
	} `toml:"assets"`

	Loader struct {
		MaxConcurrent int `toml:"max_concurrent"`
	} `toml:"loader"`

	Preview struct {
		Resolutions      []uint32 `toml:"resolutions"`
		RenderResolution uint32   `toml:"render_resolution"`
		RenderLayer      uint8    `toml:"render_layer"`
	} `toml:"preview"`

	Cache struct {
		// Root directory relative save targets land in.
		Root string `toml:"root"`
	} `toml:"cache"`

	Jobs struct {
		Workers   int `toml:"workers"`
		QueueSize int `toml:"queue_size"`
	} `toml:"jobs"`
}

func DefaultConfig() *Config {
	c := &Config{
		LogLevel: "info",
		TickRate: 60,
	}
	c.Assets.Dir = "assets"
	c.Loader.MaxConcurrent = 4
	c.Preview.Resolutions = []uint32{64, 256}
	c.Preview.RenderResolution = 512
	c.Preview.RenderLayer = 1
	c.Cache.Root = "thumbnails"
	c.Jobs.Workers = 4
	c.Jobs.QueueSize = 64
	return c
}

// LoadConfig reads a TOML config file, filling unset fields with defaults.
// A missing file is not an error; the defaults are returned as-is.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config '%s': %w", path, err)
	}
	if err := toml.Unmarshal(raw, config); err != nil {
		return nil, fmt.Errorf("parse config '%s': %w", path, err)
	}
	return config, nil
}

func (c *Config) systemManagerConfig() systems.SystemManagerConfig {
	return systems.SystemManagerConfig{
		NumWorkers:   c.Jobs.Workers,
		JobQueueSize: c.Jobs.QueueSize,
		Loader: systems.AssetLoadSystemConfig{
			MaxConcurrent: c.Loader.MaxConcurrent,
		},
		Preview: systems.PreviewSystemConfig{
			Resolutions: c.Preview.Resolutions,
		},
		RenderView: systems.RenderViewSystemConfig{
			RenderResolution: c.Preview.RenderResolution,
			RenderLayer:      c.Preview.RenderLayer,
		},
	}
}
