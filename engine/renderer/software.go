package renderer

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/spaghettifunk/vetrina/engine/core"
	"github.com/spaghettifunk/vetrina/engine/resources"
)

// Clamp bounds v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type entityKind int

const (
	entityCamera entityKind = iota
	entityLights
	entityModel
	entityMaterialSphere
	entityMesh
)

type sceneEntity struct {
	kind     entityKind
	layer    uint8
	target   *resources.Image
	model    *resources.Model
	material *resources.Material
}

// settleFrames a target must be polled before a capture succeeds, matching
// the behavior of a real GPU backend that needs the scene submitted first.
const settleFrames = 1

// SoftwareBackend is a CPU rasterizer for preview scenes. It produces
// flat-shaded placeholder renders: a lit sphere for materials, a shaded
// bounding box for models and meshes. Good enough for thumbnails and for
// running the full pipeline without a GPU.
type SoftwareBackend struct {
	nextEntity uint32
	entities   map[uint32]*sceneEntity
	// polls counts CaptureScreenshot calls per target name.
	polls map[string]int
}

func New() *SoftwareBackend {
	return &SoftwareBackend{
		entities: make(map[uint32]*sceneEntity),
		polls:    make(map[string]int),
	}
}

func (sb *SoftwareBackend) spawn(e *sceneEntity) uint32 {
	id := sb.nextEntity
	sb.nextEntity++
	sb.entities[id] = e
	return id
}

func (sb *SoftwareBackend) CreateRenderTarget(name string, resolution uint32) *resources.Image {
	img := resources.NewImage(name, resolution, resolution)
	sb.polls[name] = 0
	return img
}

func (sb *SoftwareBackend) SpawnCamera(target *resources.Image, layer uint8) uint32 {
	return sb.spawn(&sceneEntity{kind: entityCamera, layer: layer, target: target})
}

func (sb *SoftwareBackend) SpawnLights(layer uint8) uint32 {
	return sb.spawn(&sceneEntity{kind: entityLights, layer: layer})
}

func (sb *SoftwareBackend) SpawnModel(model *resources.Model, layer uint8) uint32 {
	return sb.spawn(&sceneEntity{kind: entityModel, layer: layer, model: model})
}

func (sb *SoftwareBackend) SpawnMaterialSphere(material *resources.Material, layer uint8) uint32 {
	return sb.spawn(&sceneEntity{kind: entityMaterialSphere, layer: layer, material: material})
}

func (sb *SoftwareBackend) SpawnMesh(model *resources.Model, layer uint8) uint32 {
	return sb.spawn(&sceneEntity{kind: entityMesh, layer: layer, model: model})
}

func (sb *SoftwareBackend) Despawn(entity uint32) {
	delete(sb.entities, entity)
}

// CaptureScreenshot renders the scene visible through the camera bound to
// target. The first settleFrames polls return not-ready.
func (sb *SoftwareBackend) CaptureScreenshot(target *resources.Image) (*resources.Image, bool) {
	sb.polls[target.Name]++
	if sb.polls[target.Name] <= settleFrames {
		return nil, false
	}

	camera := sb.cameraFor(target)
	if camera == nil {
		core.LogWarn("software backend: no camera bound to target '%s'", target.Name)
		return nil, false
	}
	content := sb.contentOnLayer(camera.layer)
	if content == nil {
		return nil, false
	}

	sb.rasterize(target, content)

	// Hand back a copy; the target keeps rendering if polled again.
	out := resources.NewImage(target.Name, target.Width, target.Height)
	copy(out.Pixels.Pix, target.Pixels.Pix)
	return out, true
}

func (sb *SoftwareBackend) cameraFor(target *resources.Image) *sceneEntity {
	for _, e := range sb.entities {
		if e.kind == entityCamera && e.target == target {
			return e
		}
	}
	return nil
}

func (sb *SoftwareBackend) contentOnLayer(layer uint8) *sceneEntity {
	for _, e := range sb.entities {
		if e.layer != layer {
			continue
		}
		switch e.kind {
		case entityModel, entityMaterialSphere, entityMesh:
			return e
		}
	}
	return nil
}

func (sb *SoftwareBackend) rasterize(target *resources.Image, content *sceneEntity) {
	switch content.kind {
	case entityMaterialSphere:
		sb.shadeSphere(target, content.material)
	case entityModel, entityMesh:
		sb.shadeBounds(target, content.model)
	}
}

// shadeSphere draws a lambert-lit sphere of the material's base color with
// a single directional light from the upper left.
func (sb *SoftwareBackend) shadeSphere(target *resources.Image, material *resources.Material) {
	base := [4]float32{0.8, 0.8, 0.8, 1}
	if material != nil {
		base = material.BaseColor
	}

	size := int(target.Width)
	center := float64(size) / 2
	radius := center * 0.9

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := (float64(x) - center) / radius
			dy := (float64(y) - center) / radius
			d2 := dx*dx + dy*dy
			if d2 > 1 {
				target.Pixels.SetNRGBA(x, y, color.NRGBA{A: 0})
				continue
			}
			// Surface normal z from the sphere equation; light from (-1,-1,1).
			nz := math.Sqrt(1 - d2)
			lambert := Clamp((-dx-dy+nz)/math.Sqrt(3), 0.1, 1.0)
			target.Pixels.SetNRGBA(x, y, color.NRGBA{
				R: uint8(Clamp(float64(base[0])*lambert*255, 0, 255)),
				G: uint8(Clamp(float64(base[1])*lambert*255, 0, 255)),
				B: uint8(Clamp(float64(base[2])*lambert*255, 0, 255)),
				A: uint8(Clamp(float64(base[3])*255, 0, 255)),
			})
		}
	}
}

// shadeBounds draws the model's bounding box as a front-facing, vertically
// shaded quad scaled to the box's aspect ratio. A placeholder, not a real
// projection.
func (sb *SoftwareBackend) shadeBounds(target *resources.Image, model *resources.Model) {
	size := int(target.Width)

	w := float64(1)
	h := float64(1)
	if model != nil {
		w = math.Max(float64(model.Max[0]-model.Min[0]), 1e-6)
		h = math.Max(float64(model.Max[1]-model.Min[1]), 1e-6)
	}
	scale := float64(size) * 0.9 / math.Max(w, h)
	quadW := int(w * scale)
	quadH := int(h * scale)
	x0 := (size - quadW) / 2
	y0 := (size - quadH) / 2

	quad := image.Rect(x0, y0, x0+quadW, y0+quadH)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if !image.Pt(x, y).In(quad) {
				target.Pixels.SetNRGBA(x, y, color.NRGBA{A: 0})
				continue
			}
			shade := 0.35 + 0.55*(1-float64(y-y0)/math.Max(float64(quadH), 1))
			v := uint8(Clamp(shade*255, 0, 255))
			target.Pixels.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
}
