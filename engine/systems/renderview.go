package systems

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/vetrina/engine/assets"
	"github.com/spaghettifunk/vetrina/engine/core"
	"github.com/spaghettifunk/vetrina/engine/resources"
)

// RenderBackend is the surface the render view system drives to stage 3D
// content and capture it. Screenshot capture is polled: a backend may need
// several frames before the target has valid pixels.
type RenderBackend interface {
	CreateRenderTarget(name string, resolution uint32) *resources.Image
	SpawnCamera(target *resources.Image, layer uint8) uint32
	SpawnLights(layer uint8) uint32
	SpawnModel(model *resources.Model, layer uint8) uint32
	SpawnMaterialSphere(material *resources.Material, layer uint8) uint32
	SpawnMesh(model *resources.Model, layer uint8) uint32
	Despawn(entity uint32)
	CaptureScreenshot(target *resources.Image) (*resources.Image, bool)
}

type sceneStage int

const (
	// The scene was spawned this tick; give the backend one frame to
	// settle before asking for pixels.
	sceneStageSpawned sceneStage = iota
	sceneStageWaitingForScreenshot
)

// PreviewScene3D is one staged preview scene: a render target, a camera,
// lights and the content entity, torn down as soon as a screenshot lands.
type PreviewScene3D struct {
	Request *PendingPreviewRequest
	Asset   *assets.Asset
	Target  *resources.Image

	entities []uint32
	layer    uint8
	stage    sceneStage
	attempts int
}

type RenderViewSystemConfig struct {
	// RenderResolution of the offscreen target. Defaults to 512; the
	// preview system scales captures down from there.
	RenderResolution uint32
	// RenderLayer is the first layer preview scenes stage on. Every live
	// scene gets its own layer above it so concurrent captures never see
	// each other's content. Defaults to 1; layer 0 stays free for the
	// backend's main view.
	RenderLayer uint8
	// MaxCaptureAttempts bounds screenshot polling per scene. Defaults
	// to 600 ticks.
	MaxCaptureAttempts int
}

// RenderViewSystem owns the staged 3D preview scenes and drives them
// through spawn -> capture -> teardown across scheduler ticks.
type RenderViewSystem struct {
	config       RenderViewSystemConfig
	backend      RenderBackend
	assetManager *assets.AssetManager
	preview      *PreviewSystem

	scenes    []*PreviewScene3D
	nextLayer uint8
}

func NewRenderViewSystem(config RenderViewSystemConfig, backend RenderBackend, am *assets.AssetManager) (*RenderViewSystem, error) {
	if backend == nil || am == nil {
		return nil, fmt.Errorf("func NewRenderViewSystem - a render backend and asset manager are required")
	}
	if config.RenderResolution == 0 {
		config.RenderResolution = 512
	}
	if config.RenderLayer == 0 {
		config.RenderLayer = 1
	}
	if config.MaxCaptureAttempts <= 0 {
		config.MaxCaptureAttempts = 600
	}

	return &RenderViewSystem{
		config:       config,
		backend:      backend,
		assetManager: am,
		nextLayer:    config.RenderLayer,
	}, nil
}

// allocLayer hands each staged scene a render layer no live scene is using.
// Wraps past 255 back to the base layer; with every layer occupied the base
// layer is shared rather than stalling the request.
func (rv *RenderViewSystem) allocLayer() uint8 {
	for i := 0; i < 256; i++ {
		layer := rv.nextLayer
		rv.nextLayer++
		if rv.nextLayer == 0 {
			rv.nextLayer = rv.config.RenderLayer
		}
		if layer != 0 && !rv.layerInUse(layer) {
			return layer
		}
	}
	return rv.config.RenderLayer
}

func (rv *RenderViewSystem) layerInUse(layer uint8) bool {
	for _, scene := range rv.scenes {
		if scene.layer == layer {
			return true
		}
	}
	return false
}

// BindPreviewSystem closes the completion loop back to the preview system.
// Called once during wiring, before the first Update.
func (rv *RenderViewSystem) BindPreviewSystem(ps *PreviewSystem) {
	rv.preview = ps
}

// Stage spawns a preview scene for a loaded 3D asset. The render view
// system owns the request from here until capture or failure.
func (rv *RenderViewSystem) Stage(req *PendingPreviewRequest, asset *assets.Asset) {
	target := rv.backend.CreateRenderTarget(uuid.New().String(), rv.config.RenderResolution)
	layer := rv.allocLayer()

	scene := &PreviewScene3D{
		Request: req,
		Asset:   asset,
		Target:  target,
		layer:   layer,
		stage:   sceneStageSpawned,
	}
	scene.entities = append(scene.entities,
		rv.backend.SpawnCamera(target, layer),
		rv.backend.SpawnLights(layer),
	)

	switch content := req.RequestType.(type) {
	case RequestModelFile:
		model := rv.modelPayload(asset)
		if model == nil {
			rv.failScene(scene, &core.AssetLoadError{Path: req.Path, Reason: "model payload missing"})
			return
		}
		scene.entities = append(scene.entities, rv.backend.SpawnModel(model, layer))

	case RequestMesh:
		model := rv.modelPayload(asset)
		if model == nil {
			rv.failScene(scene, &core.AssetLoadError{Path: req.Path, Reason: "mesh payload missing"})
			return
		}
		scene.entities = append(scene.entities, rv.backend.SpawnMesh(model, layer))

	case RequestMaterial:
		data, ok := rv.materialPayload(asset)
		if !ok {
			rv.failScene(scene, &core.AssetLoadError{Path: req.Path, Reason: "material payload missing"})
			return
		}
		scene.entities = append(scene.entities, rv.backend.SpawnMaterialSphere(data, layer))

	default:
		rv.failScene(scene, fmt.Errorf("content type %T cannot be staged in a 3D scene", content))
		return
	}

	rv.scenes = append(rv.scenes, scene)
	core.LogDebug("staged 3D preview scene for '%s' (%d live scenes)", req.Path, len(rv.scenes))
}

func (rv *RenderViewSystem) modelPayload(asset *assets.Asset) *resources.Model {
	if data, ok := rv.assetManager.GetData(asset).(*resources.ModelData); ok {
		return data.Model
	}
	return nil
}

func (rv *RenderViewSystem) materialPayload(asset *assets.Asset) (*resources.Material, bool) {
	if data, ok := rv.assetManager.GetData(asset).(*resources.MaterialData); ok {
		return data.Material, true
	}
	return nil, false
}

// SceneCount reports how many preview scenes are currently live.
func (rv *RenderViewSystem) SceneCount() int {
	return len(rv.scenes)
}

// Update advances every staged scene one step: spawned scenes start
// polling next tick, polling scenes capture or time out.
func (rv *RenderViewSystem) Update() {
	live := rv.scenes[:0]
	for _, scene := range rv.scenes {
		if rv.advance(scene) {
			live = append(live, scene)
		}
	}
	// Zero the tail so torn-down scenes do not linger in the backing array.
	for i := len(live); i < len(rv.scenes); i++ {
		rv.scenes[i] = nil
	}
	rv.scenes = live
}

// advance returns true while the scene stays live.
func (rv *RenderViewSystem) advance(scene *PreviewScene3D) bool {
	switch scene.stage {
	case sceneStageSpawned:
		scene.stage = sceneStageWaitingForScreenshot
		return true

	case sceneStageWaitingForScreenshot:
		captured, ok := rv.backend.CaptureScreenshot(scene.Target)
		if !ok {
			scene.attempts++
			if scene.attempts >= rv.config.MaxCaptureAttempts {
				rv.failScene(scene, &core.ImageConversionError{Reason: "render backend never produced a screenshot"})
				return false
			}
			return true
		}

		rv.teardown(scene)
		if rv.preview != nil {
			rv.preview.CompleteFromRender(scene.Request, scene.Asset.ID, captured)
		}
		return false
	}
	return false
}

func (rv *RenderViewSystem) failScene(scene *PreviewScene3D, err error) {
	rv.teardown(scene)
	if rv.preview != nil {
		rv.preview.FailFromRender(scene.Request, err)
	}
}

func (rv *RenderViewSystem) teardown(scene *PreviewScene3D) {
	for _, entity := range scene.entities {
		rv.backend.Despawn(entity)
	}
	scene.entities = nil
}

func (rv *RenderViewSystem) Shutdown() error {
	for _, scene := range rv.scenes {
		rv.teardown(scene)
	}
	rv.scenes = nil
	return nil
}
