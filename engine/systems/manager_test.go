package systems

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vetrina/engine/core"
	"github.com/spaghettifunk/vetrina/engine/renderer"
)

func newTestSystemManager(t *testing.T) (*SystemManager, string) {
	t.Helper()
	dir := t.TempDir()

	sm, err := NewSystemManager(SystemManagerConfig{}, renderer.New(), nil)
	require.NoError(t, err)
	require.NoError(t, sm.Initialize(dir))
	t.Cleanup(func() { _ = sm.Shutdown() })
	return sm, dir
}

// tickUntil drives the scheduler until the condition holds or the deadline
// passes. The real worker pool is in play here, so completion is not
// synchronous.
func tickUntil(t *testing.T, sm *SystemManager, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never held")
		}
		sm.Update()
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSystemManagerEndToEndImagePreview(t *testing.T) {
	sm, dir := newTestSystemManager(t)
	path := writePNG(t, dir, "brick.png", 512, 512)

	recorder := newEventRecorder(sm.EventSystem, core.EVENT_CODE_PREVIEW_READY)

	taskID := sm.RequestPreview(path, 0)
	tickUntil(t, sm, func() bool {
		return len(recorder.got(core.EVENT_CODE_PREVIEW_READY)) > 0
	})

	ready := recorder.got(core.EVENT_CODE_PREVIEW_READY)
	require.Len(t, ready, 1)
	assert.Equal(t, taskID, ready[0].TaskID)
	assert.Equal(t, uint32(256), ready[0].Image.Width)

	// A repeat request is a cache hit and completes synchronously.
	second := sm.RequestPreview(path, 64)
	ready = recorder.got(core.EVENT_CODE_PREVIEW_READY)
	require.Len(t, ready, 2)
	assert.Equal(t, second, ready[1].TaskID)
	assert.Equal(t, uint32(64), ready[1].Image.Width)
}

func TestSystemManagerEndToEndSave(t *testing.T) {
	sm, dir := newTestSystemManager(t)
	path := writePNG(t, dir, "brick.png", 128, 128)

	previews := newEventRecorder(sm.EventSystem, core.EVENT_CODE_PREVIEW_READY)
	saves := newEventRecorder(sm.EventSystem, core.EVENT_CODE_SAVE_COMPLETED)

	sm.RequestPreview(path, 64)
	tickUntil(t, sm, func() bool {
		return len(previews.got(core.EVENT_CODE_PREVIEW_READY)) > 0
	})
	img := previews.got(core.EVENT_CODE_PREVIEW_READY)[0].Image

	target := filepath.Join(dir, "thumbs", "brick.png")
	taskID := sm.SavePreview(img, target)
	tickUntil(t, sm, func() bool {
		return len(saves.got(core.EVENT_CODE_SAVE_COMPLETED)) > 0
	})

	completed := saves.got(core.EVENT_CODE_SAVE_COMPLETED)
	require.Len(t, completed, 1)
	assert.Equal(t, taskID, completed[0].TaskID)
	require.NoError(t, completed[0].Err)

	_, err := os.Stat(target)
	assert.NoError(t, err)
}
