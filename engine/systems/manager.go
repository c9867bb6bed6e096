package systems

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spaghettifunk/vetrina/engine/assets"
	"github.com/spaghettifunk/vetrina/engine/core"
	"github.com/spaghettifunk/vetrina/engine/resources"
)

type SystemManagerConfig struct {
	// NumWorkers for the decode job pool. Defaults to 4.
	NumWorkers int
	// JobQueueSize of the pool's channel. Defaults to 64.
	JobQueueSize int

	Loader     AssetLoadSystemConfig
	Preview    PreviewSystemConfig
	RenderView RenderViewSystemConfig
}

// SystemManager owns every engine system and wires them together in
// dependency order. Update drives one scheduler tick across all of them.
type SystemManager struct {
	EventSystem  *core.EventSystem
	Clock        *core.Clock
	Metrics      *core.Metrics
	JobSystem    *JobSystem
	AssetManager *assets.AssetManager
	LoadSystem   *AssetLoadSystem
	Cache        *PreviewCache
	Preview      *PreviewSystem
	RenderView   *RenderViewSystem
	Saver        *SaveSystem
	Writer       assets.Writer
}

func NewSystemManager(config SystemManagerConfig, backend RenderBackend, registry prometheus.Registerer) (*SystemManager, error) {
	if config.NumWorkers <= 0 {
		config.NumWorkers = 4
	}
	if config.JobQueueSize <= 0 {
		config.JobQueueSize = 64
	}

	events := core.NewEventSystem()
	clock := core.NewClock()
	clock.Start()
	metrics := core.NewMetrics(registry)

	jobs, err := NewJobSystem(config.NumWorkers, config.JobQueueSize)
	if err != nil {
		return nil, err
	}

	am, err := assets.NewAssetManager(jobs)
	if err != nil {
		return nil, err
	}

	loadSystem, err := NewAssetLoadSystem(config.Loader, am, events, metrics)
	if err != nil {
		return nil, err
	}

	cache := NewPreviewCache(clock, metrics)

	var renderView *RenderViewSystem
	if backend != nil {
		renderView, err = NewRenderViewSystem(config.RenderView, backend, am)
		if err != nil {
			return nil, err
		}
	}

	preview, err := NewPreviewSystem(config.Preview, cache, loadSystem, am, renderView, events, metrics)
	if err != nil {
		return nil, err
	}
	if renderView != nil {
		renderView.BindPreviewSystem(preview)
	}

	saver, err := NewSaveSystem(events, metrics)
	if err != nil {
		return nil, err
	}

	return &SystemManager{
		EventSystem:  events,
		Clock:        clock,
		Metrics:      metrics,
		JobSystem:    jobs,
		AssetManager: am,
		LoadSystem:   loadSystem,
		Cache:        cache,
		Preview:      preview,
		RenderView:   renderView,
		Saver:        saver,
		Writer:       &assets.FilesystemWriter{},
	}, nil
}

// Initialize brings the asset index online and subscribes the systems to
// each other's events.
func (sm *SystemManager) Initialize(assetsDir string) error {
	if err := sm.AssetManager.Initialize(assetsDir); err != nil {
		return err
	}
	return sm.Preview.Initialize()
}

// Update runs one scheduler tick: load admission and completion routing
// first, then 3D scene progression, then save completions.
func (sm *SystemManager) Update() {
	sm.Clock.Update()
	sm.LoadSystem.Update()
	if sm.RenderView != nil {
		sm.RenderView.Update()
	}
	sm.Saver.Update()
}

// RequestPreview forwards to the preview system.
func (sm *SystemManager) RequestPreview(path string, resolution uint32) uint64 {
	return sm.Preview.RequestPreview(path, resolution)
}

// SavePreview exports an image through the configured writer.
func (sm *SystemManager) SavePreview(img *resources.Image, targetPath string) uint64 {
	return sm.Saver.Save(img, targetPath, sm.Writer)
}

// Shutdown tears the systems down in reverse dependency order.
func (sm *SystemManager) Shutdown() error {
	if err := sm.Saver.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if sm.RenderView != nil {
		if err := sm.RenderView.Shutdown(); err != nil {
			core.LogError(err.Error())
		}
	}
	if err := sm.Preview.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if err := sm.LoadSystem.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if err := sm.AssetManager.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	return sm.JobSystem.Shutdown()
}
