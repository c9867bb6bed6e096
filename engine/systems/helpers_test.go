package systems

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vetrina/engine/assets"
	"github.com/spaghettifunk/vetrina/engine/core"
)

// syncRunner executes decode jobs inline so loads complete before the
// submitting call returns. Keeps scheduler tests deterministic.
type syncRunner struct{}

func (syncRunner) Submit(jt core.JobTask) {
	result, err := jt.OnStart()
	if err != nil {
		if jt.OnFailure != nil {
			jt.OnFailure(err)
		}
		return
	}
	if jt.OnComplete != nil {
		jt.OnComplete(result)
	}
}

// eventRecorder captures every event fired for the codes it subscribes to.
type eventRecorder struct {
	byCode map[core.SystemEventCode][]core.EventContext
}

func newEventRecorder(es *core.EventSystem, codes ...core.SystemEventCode) *eventRecorder {
	r := &eventRecorder{byCode: make(map[core.SystemEventCode][]core.EventContext)}
	for _, code := range codes {
		es.Register(code, r, func(code core.SystemEventCode, sender, inst interface{}, data core.EventContext) bool {
			rec := inst.(*eventRecorder)
			rec.byCode[code] = append(rec.byCode[code], data)
			return false
		})
	}
	return r
}

func (r *eventRecorder) got(code core.SystemEventCode) []core.EventContext {
	return r.byCode[code]
}

func writePNG(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewNRGBA(image.Rect(0, 0, width, height))))
	return path
}

func writeSolidPNG(t *testing.T, dir, name string, width, height int, c color.NRGBA) string {
	t.Helper()
	path := filepath.Join(dir, name)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func newTestAssetManager(t *testing.T) (*assets.AssetManager, string) {
	t.Helper()
	dir := t.TempDir()
	am, err := assets.NewAssetManager(syncRunner{})
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	t.Cleanup(func() { _ = am.Shutdown() })
	return am, dir
}
