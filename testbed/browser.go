/*
Testbed package exercising the engine: walk an asset directory, request a
preview for everything previewable and export the results as thumbnails.
*/
package testbed

import (
	"os"
	"path/filepath"

	"github.com/spaghettifunk/vetrina/engine"
	"github.com/spaghettifunk/vetrina/engine/core"
	"github.com/spaghettifunk/vetrina/engine/resources"
)

// Browser is a headless directory browser: one preview request per
// previewable file, thumbnails exported through the engine's cache root.
type Browser struct {
	engine   *engine.Engine
	assetDir string

	requested map[uint64]string
}

func NewBrowser(eng *engine.Engine, assetDir string) *Browser {
	return &Browser{
		engine:    eng,
		assetDir:  assetDir,
		requested: make(map[uint64]string),
	}
}

// Start subscribes to the engine's events and requests a preview for every
// previewable file under the asset directory.
func (b *Browser) Start() error {
	events := b.engine.Events()
	events.Register(core.EVENT_CODE_PREVIEW_READY, b, b.onPreviewReady)
	events.Register(core.EVENT_CODE_PREVIEW_FAILED, b, b.onPreviewFailed)
	events.Register(core.EVENT_CODE_SAVE_COMPLETED, b, b.onSaveCompleted)

	return filepath.Walk(b.assetDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		if resources.DetermineAssetType(path) == resources.AssetTypeNone {
			return nil
		}

		taskID := b.engine.RequestPreview(path, 0)
		b.requested[taskID] = path
		return nil
	})
}

func (b *Browser) onPreviewReady(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	path, ok := b.requested[data.TaskID]
	if !ok {
		return false
	}
	delete(b.requested, data.TaskID)

	core.LogInfo("preview ready for '%s' (%dx%d)", path, data.Image.Width, data.Image.Height)

	// Relative target: the engine places it under the cache root.
	b.engine.SavePreview(data.Image, filepath.Base(path))
	return false
}

func (b *Browser) onPreviewFailed(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	path, ok := b.requested[data.TaskID]
	if !ok {
		return false
	}
	delete(b.requested, data.TaskID)

	core.LogWarn("preview failed for '%s': %s", path, data.Err.Error())
	return false
}

func (b *Browser) onSaveCompleted(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	if data.Err != nil {
		core.LogWarn("thumbnail save failed for '%s': %s", data.Path, data.Err.Error())
		return false
	}
	core.LogInfo("thumbnail saved to '%s'", data.Path)
	return false
}
