package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vetrina/engine/resources"
)

func TestImageLoaderDecodesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swatch.png")

	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	data, err := (&ImageLoader{}).Load(path)
	require.NoError(t, err)

	imgData, ok := data.(*resources.ImageData)
	require.True(t, ok)
	assert.Equal(t, uint32(3), imgData.Image.Width)
	assert.Equal(t, uint32(2), imgData.Image.Height)
	assert.Equal(t, "swatch.png (png)", imgData.Image.Name)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, imgData.Image.Pixels.NRGBAAt(0, 0))
}

func TestImageLoaderMissingFile(t *testing.T) {
	_, err := (&ImageLoader{}).Load(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestMaterialLoaderParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brick.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
name = "brick"
base_color = [0.8, 0.3, 0.2, 1.0]
metallic = 0.1
roughness = 0.7
`), 0o644))

	data, err := (&MaterialLoader{}).Load(path)
	require.NoError(t, err)

	mat, ok := data.(*resources.MaterialData)
	require.True(t, ok)
	assert.Equal(t, "brick", mat.Material.Name)
	assert.Equal(t, [4]float32{0.8, 0.3, 0.2, 1.0}, mat.Material.BaseColor)
	assert.InDelta(t, 0.1, mat.Material.Metallic, 1e-6)
	assert.InDelta(t, 0.7, mat.Material.Roughness, 1e-6)
}

func TestMaterialLoaderDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.toml")
	require.NoError(t, os.WriteFile(path, []byte(`metallic = 0.2`), 0o644))

	data, err := (&MaterialLoader{}).Load(path)
	require.NoError(t, err)

	mat := data.(*resources.MaterialData).Material
	assert.Equal(t, "plain", mat.Name)
	assert.Equal(t, [4]float32{1, 1, 1, 1}, mat.BaseColor)
	assert.InDelta(t, 0.5, mat.Roughness, 1e-6)
}

func TestModelLoaderParsesOBJ(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prop.obj")
	require.NoError(t, os.WriteFile(path, []byte(`
# a triangle
v -1.0 0.0 0.5
v 1.0 2.0 -0.5
v 0.0 1.0 0.0
f 1 2 3
`), 0o644))

	data, err := (&ModelLoader{}).Load(path)
	require.NoError(t, err)

	model := data.(*resources.ModelData).Model
	assert.Equal(t, "prop", model.Name)
	assert.Equal(t, resources.ModelFormatOBJ, model.Format)
	assert.Equal(t, 3, model.VertexCount)
	assert.Equal(t, [3]float32{-1, 0, -0.5}, model.Min)
	assert.Equal(t, [3]float32{1, 2, 0.5}, model.Max)
}

func TestModelLoaderRejectsEmptyOBJ(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.obj")
	require.NoError(t, os.WriteFile(path, []byte("# nothing\n"), 0o644))

	_, err := (&ModelLoader{}).Load(path)
	assert.Error(t, err)
}

func TestModelLoaderNonOBJFallsBackToUnitBox(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.gltf")
	require.NoError(t, os.WriteFile(path, []byte(`{"asset":{"version":"2.0"}}`), 0o644))

	data, err := (&ModelLoader{}).Load(path)
	require.NoError(t, err)

	model := data.(*resources.ModelData).Model
	assert.Equal(t, resources.ModelFormatGLTF, model.Format)
	assert.Equal(t, [3]float32{-0.5, -0.5, -0.5}, model.Min)
	assert.Equal(t, [3]float32{0.5, 0.5, 0.5}, model.Max)
}
