package engine

import (
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spaghettifunk/vetrina/engine/core"
	"github.com/spaghettifunk/vetrina/engine/renderer"
	"github.com/spaghettifunk/vetrina/engine/resources"
	"github.com/spaghettifunk/vetrina/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Engine drives the preview pipeline's scheduler loop. Submitting work is
// safe from event callbacks; results come back as events on the engine's
// event system.
type Engine struct {
	currentStage Stage
	config       *Config

	systemManager *systems.SystemManager

	isRunning bool
	done      chan struct{}
}

func New(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	core.SetLogLevel(config.LogLevel)

	sm, err := systems.NewSystemManager(config.systemManagerConfig(), renderer.New(), prometheus.DefaultRegisterer)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage:  EngineStageUninitialized,
		config:        config,
		systemManager: sm,
		done:          make(chan struct{}),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := e.systemManager.Initialize(e.config.Assets.Dir); err != nil {
		core.LogError(err.Error())
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// Run executes the scheduler loop at the configured tick rate until Stop
// is called. Each tick admits queued loads, routes completions and drains
// render and save progress.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning = true

	tickRate := e.config.TickRate
	if tickRate <= 0 {
		tickRate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	for e.isRunning {
		select {
		case <-ticker.C:
			e.systemManager.Update()
		case <-e.done:
			e.isRunning = false
		}
	}
	return nil
}

// Tick runs a single scheduler pass. Useful for embedders that own their
// own loop instead of calling Run.
func (e *Engine) Tick() {
	e.systemManager.Update()
}

// Stop ends the Run loop. Safe to call from any goroutine.
func (e *Engine) Stop() {
	close(e.done)
}

// Events exposes the event system so embedders can register listeners for
// preview and save completions.
func (e *Engine) Events() *core.EventSystem {
	return e.systemManager.EventSystem
}

// Systems exposes the underlying system manager.
func (e *Engine) Systems() *systems.SystemManager {
	return e.systemManager
}

// RequestPreview asks for a preview of path at resolution (0 = best
// available) and returns a preview task id.
func (e *Engine) RequestPreview(path string, resolution uint32) uint64 {
	return e.systemManager.RequestPreview(path, resolution)
}

// SavePreview exports an image to targetPath and returns a save task id.
// Relative targets land under the configured cache root.
func (e *Engine) SavePreview(img *resources.Image, targetPath string) uint64 {
	if !filepath.IsAbs(targetPath) {
		targetPath = filepath.Join(e.config.Cache.Root, targetPath)
	}
	return e.systemManager.SavePreview(img, targetPath)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	return e.systemManager.Shutdown()
}
