package loaders

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"

	// Codecs register themselves with image.Decode. The stdlib set plus the
	// extended x/image formats the editor browses.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/google/uuid"

	"github.com/spaghettifunk/vetrina/engine/resources"
)

type ImageLoader struct{}

func (il *ImageLoader) Load(path string) (resources.Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image '%s': %w", path, err)
	}
	defer f.Close()

	decoded, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image '%s': %w", path, err)
	}

	// Normalize every format to NRGBA so downstream resize and encode work
	// on one pixel layout.
	bounds := decoded.Bounds()
	pixels := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(pixels, pixels.Bounds(), decoded, bounds.Min, draw.Src)

	return &resources.ImageData{
		Image: &resources.Image{
			ID:     uuid.New(),
			Name:   fmt.Sprintf("%s (%s)", filepath.Base(path), format),
			Width:  uint32(bounds.Dx()),
			Height: uint32(bounds.Dy()),
			Pixels: pixels,
		},
	}, nil
}

func (il *ImageLoader) Unload(resources.Data) error {
	return nil
}
