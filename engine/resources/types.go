package resources

import (
	"image"
	"path/filepath"

	"github.com/google/uuid"
)

// AssetType classifies an on-disk asset by what kind of preview it needs.
type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeImage
	AssetTypeMaterial
	AssetTypeMesh
	AssetTypeModel
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeImage:
		return "image"
	case AssetTypeMaterial:
		return "material"
	case AssetTypeMesh:
		return "mesh"
	case AssetTypeModel:
		return "model"
	default:
		return "none"
	}
}

// DetermineAssetType maps a file extension to an asset type. Unknown
// extensions return AssetTypeNone and are not previewable.
func DetermineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".webp", ".tga":
		return AssetTypeImage
	case ".vmt", ".toml":
		return AssetTypeMaterial
	case ".mesh":
		return AssetTypeMesh
	case ".obj", ".gltf", ".glb", ".fbx":
		return AssetTypeModel
	default:
		return AssetTypeNone
	}
}

// ModelFormat identifies the file format of a 3D model asset.
type ModelFormat string

const (
	ModelFormatGLTF ModelFormat = "gltf"
	ModelFormatFBX  ModelFormat = "fbx"
	ModelFormatOBJ  ModelFormat = "obj"
)

// ModelFormatForPath derives the model format from the file extension.
func ModelFormatForPath(path string) ModelFormat {
	switch filepath.Ext(path) {
	case ".gltf", ".glb":
		return ModelFormatGLTF
	case ".fbx":
		return ModelFormatFBX
	default:
		return ModelFormatOBJ
	}
}

// Image is decoded pixel data plus its identity. Preview images and render
// targets are Images too; the ID makes each one addressable on its own.
type Image struct {
	ID     uuid.UUID
	Name   string
	Width  uint32
	Height uint32
	Pixels *image.NRGBA
}

// NewImage allocates a blank image of the given size with a fresh identity.
func NewImage(name string, width, height uint32) *Image {
	return &Image{
		ID:     uuid.New(),
		Name:   name,
		Width:  width,
		Height: height,
		Pixels: image.NewNRGBA(image.Rect(0, 0, int(width), int(height))),
	}
}

// Material is a surface description parsed from a material file.
type Material struct {
	Name      string     `toml:"name"`
	BaseColor [4]float32 `toml:"base_color"`
	Metallic  float32    `toml:"metallic"`
	Roughness float32    `toml:"roughness"`
}

// Model is the geometry summary of a parsed model file: enough to frame a
// preview camera, not a full render mesh.
type Model struct {
	Name        string
	Format      ModelFormat
	VertexCount int
	Min         [3]float32
	Max         [3]float32
}

// Data is the payload of a loaded asset. One variant per asset type;
// consumers dispatch with a type switch.
type Data interface {
	resourceData()
}

// ImageData carries decoded image pixels.
type ImageData struct {
	Image *Image
}

func (*ImageData) resourceData() {}

// MaterialData carries a parsed material description.
type MaterialData struct {
	Material *Material
}

func (*MaterialData) resourceData() {}

// ModelData carries parsed model geometry. Mesh assets reuse this variant;
// a mesh file is a model with exactly one object.
type ModelData struct {
	Model *Model
}

func (*ModelData) resourceData() {}
