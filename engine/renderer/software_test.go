package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vetrina/engine/resources"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(10, 0, 5))
	assert.Equal(t, 0, Clamp(-1, 0, 5))
	assert.Equal(t, 3, Clamp(3, 0, 5))
	assert.Equal(t, 1.0, Clamp(2.5, 0.0, 1.0))
}

func stageSphere(t *testing.T, sb *SoftwareBackend, color [4]float32) *resources.Image {
	t.Helper()
	target := sb.CreateRenderTarget("target", 32)
	sb.SpawnCamera(target, 1)
	sb.SpawnLights(1)
	sb.SpawnMaterialSphere(&resources.Material{BaseColor: color}, 1)
	return target
}

func TestCaptureNeedsSettleFrame(t *testing.T) {
	sb := New()
	target := stageSphere(t, sb, [4]float32{1, 0, 0, 1})

	_, ok := sb.CaptureScreenshot(target)
	assert.False(t, ok)

	out, ok := sb.CaptureScreenshot(target)
	require.True(t, ok)
	assert.Equal(t, uint32(32), out.Width)
	assert.NotEqual(t, target.ID, out.ID)
}

func TestMaterialSphereShading(t *testing.T) {
	sb := New()
	target := stageSphere(t, sb, [4]float32{1, 0, 0, 1})

	sb.CaptureScreenshot(target)
	out, ok := sb.CaptureScreenshot(target)
	require.True(t, ok)

	center := out.Pixels.NRGBAAt(16, 16)
	assert.Greater(t, center.R, uint8(0))
	assert.Equal(t, uint8(0), center.G)
	assert.Equal(t, uint8(255), center.A)

	// Corners are outside the sphere and fully transparent.
	assert.Equal(t, uint8(0), out.Pixels.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(0), out.Pixels.NRGBAAt(31, 31).A)
}

func TestModelBoundsShading(t *testing.T) {
	sb := New()
	target := sb.CreateRenderTarget("target", 32)
	sb.SpawnCamera(target, 1)
	sb.SpawnLights(1)
	sb.SpawnModel(&resources.Model{
		Min: [3]float32{-1, -0.5, 0},
		Max: [3]float32{1, 0.5, 0},
	}, 1)

	sb.CaptureScreenshot(target)
	out, ok := sb.CaptureScreenshot(target)
	require.True(t, ok)

	// Center falls inside the quad, far edges outside it.
	assert.Equal(t, uint8(255), out.Pixels.NRGBAAt(16, 16).A)
	assert.Equal(t, uint8(0), out.Pixels.NRGBAAt(16, 0).A)
}

func TestCaptureWithoutCamera(t *testing.T) {
	sb := New()
	target := sb.CreateRenderTarget("target", 16)
	sb.SpawnLights(1)

	sb.CaptureScreenshot(target)
	_, ok := sb.CaptureScreenshot(target)
	assert.False(t, ok)
}

func TestDespawnRemovesContent(t *testing.T) {
	sb := New()
	target := sb.CreateRenderTarget("target", 16)
	sb.SpawnCamera(target, 1)
	content := sb.SpawnMaterialSphere(&resources.Material{BaseColor: [4]float32{1, 1, 1, 1}}, 1)

	sb.Despawn(content)

	sb.CaptureScreenshot(target)
	_, ok := sb.CaptureScreenshot(target)
	assert.False(t, ok)
}

func TestLayersIsolateScenes(t *testing.T) {
	sb := New()
	target := sb.CreateRenderTarget("target", 16)
	sb.SpawnCamera(target, 1)
	// Content on another layer is invisible to this camera.
	sb.SpawnMaterialSphere(&resources.Material{BaseColor: [4]float32{1, 1, 1, 1}}, 2)

	sb.CaptureScreenshot(target)
	_, ok := sb.CaptureScreenshot(target)
	assert.False(t, ok)
}
