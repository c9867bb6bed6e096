package systems

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/google/uuid"

	"github.com/spaghettifunk/vetrina/engine/assets"
	"github.com/spaghettifunk/vetrina/engine/core"
	"github.com/spaghettifunk/vetrina/engine/resources"
)

// PreviewMode discriminates how a preview is produced.
type PreviewMode int

const (
	// PreviewModeImage - the source is already an image; resize only.
	PreviewModeImage PreviewMode = iota
	// PreviewModeEntity - the source must be staged in a 3D scene and
	// captured from a render target.
	PreviewModeEntity
)

// PreviewRequestType is a sealed variant describing what kind of content a
// preview request refers to once its asset is loaded.
type PreviewRequestType interface {
	previewRequestType()
}

type RequestImage2D struct{}

type RequestModelFile struct {
	Handle *assets.Asset
	Format resources.ModelFormat
}

type RequestMaterial struct {
	Handle *assets.Asset
}

type RequestMesh struct {
	Handle *assets.Asset
}

func (RequestImage2D) previewRequestType()   {}
func (RequestModelFile) previewRequestType() {}
func (RequestMaterial) previewRequestType()  {}
func (RequestMesh) previewRequestType()      {}

// PendingPreviewRequest is the bookkeeping attached to a tracking entity
// while a preview waits for its asset to load (or render).
type PendingPreviewRequest struct {
	TaskID uint64
	Path   string
	// Resolution requested by the caller; 0 means best available.
	Resolution  uint32
	RequestType PreviewRequestType
	Mode        PreviewMode
}

// PreviewTaskManager owns the preview task id space and maps live task ids
// to their tracking entities.
type PreviewTaskManager struct {
	nextTaskID   uint64
	taskToEntity map[uint64]uint32
	trackers     *core.EntityRegistry
}

func NewPreviewTaskManager() *PreviewTaskManager {
	return &PreviewTaskManager{
		taskToEntity: make(map[uint64]uint32),
		trackers:     core.NewEntityRegistry(),
	}
}

func (tm *PreviewTaskManager) CreateTaskID() uint64 {
	id := tm.nextTaskID
	tm.nextTaskID++
	return id
}

// RegisterTask attaches the request to a tracking entity.
func (tm *PreviewTaskManager) RegisterTask(req *PendingPreviewRequest) uint32 {
	entity := tm.trackers.Acquire(req)
	tm.taskToEntity[req.TaskID] = entity
	return entity
}

// Get returns the live request for a task id.
func (tm *PreviewTaskManager) Get(taskID uint64) (*PendingPreviewRequest, bool) {
	entity, ok := tm.taskToEntity[taskID]
	if !ok {
		return nil, false
	}
	req, ok := tm.trackers.Get(entity).(*PendingPreviewRequest)
	return req, ok
}

// RemoveTask releases the tracking entity for a finished task.
func (tm *PreviewTaskManager) RemoveTask(taskID uint64) {
	entity, ok := tm.taskToEntity[taskID]
	if !ok {
		return
	}
	delete(tm.taskToEntity, taskID)
	if err := tm.trackers.Release(entity); err != nil {
		core.LogWarn(err.Error())
	}
}

func (tm *PreviewTaskManager) PendingCount() int {
	return len(tm.taskToEntity)
}

type PreviewSystemConfig struct {
	// Resolutions generated for every previewed asset, ascending. Defaults
	// to 64 and 256.
	Resolutions []uint32
}

// PreviewSystem answers preview requests: served from cache when possible,
// generated synchronously when the asset already sits in memory, otherwise
// parked on a tracking entity until the loader reports completion.
type PreviewSystem struct {
	config PreviewSystemConfig

	cache        *PreviewCache
	loader       *AssetLoadSystem
	assetManager *assets.AssetManager
	renderView   *RenderViewSystem
	events       *core.EventSystem
	metrics      *core.Metrics

	tasks *PreviewTaskManager
	// pendingByPath indexes live preview tasks by the asset path they wait
	// on; completion events carry paths, not preview task ids.
	pendingByPath map[string][]uint64
}

func NewPreviewSystem(config PreviewSystemConfig, cache *PreviewCache, loader *AssetLoadSystem, am *assets.AssetManager, rv *RenderViewSystem, es *core.EventSystem, metrics *core.Metrics) (*PreviewSystem, error) {
	if cache == nil || loader == nil || am == nil || es == nil {
		return nil, fmt.Errorf("func NewPreviewSystem - cache, loader, asset manager and event system are required")
	}
	if len(config.Resolutions) == 0 {
		config.Resolutions = []uint32{64, 256}
	}

	return &PreviewSystem{
		config:        config,
		cache:         cache,
		loader:        loader,
		assetManager:  am,
		renderView:    rv,
		events:        es,
		metrics:       metrics,
		tasks:         NewPreviewTaskManager(),
		pendingByPath: make(map[string][]uint64),
	}, nil
}

// Initialize subscribes the system to the loader's completion events.
func (ps *PreviewSystem) Initialize() error {
	ps.events.Register(core.EVENT_CODE_ASSET_LOAD_COMPLETED, ps, ps.onAssetLoaded)
	ps.events.Register(core.EVENT_CODE_ASSET_LOAD_FAILED, ps, ps.onAssetFailed)
	ps.events.Register(core.EVENT_CODE_ASSET_REMOVED, ps, ps.onAssetRemoved)
	ps.events.Register(core.EVENT_CODE_ASSET_HOT_RELOADED, ps, ps.onAssetHotReloaded)
	return nil
}

// RequestPreview asks for a preview of path at the given resolution
// (0 = best available) and returns a preview task id immediately. The
// result arrives as a PREVIEW_READY or PREVIEW_FAILED event carrying the
// same task id; cache hits fire before this call returns.
func (ps *PreviewSystem) RequestPreview(path string, resolution uint32) uint64 {
	taskID := ps.tasks.CreateTaskID()

	// Fast path: already cached.
	if entry, ok := ps.lookupCache(path, resolution); ok {
		ps.fireReady(taskID, path, entry)
		return taskID
	}

	mode := PreviewModeImage
	if resources.DetermineAssetType(path) != resources.AssetTypeImage {
		mode = PreviewModeEntity
	}

	// Second fast path: the asset is already resident, generate now.
	if mode == PreviewModeImage {
		if asset := ps.assetManager.Get(path); asset != nil && ps.assetManager.LoadState(asset) == assets.LoadStateLoaded {
			if data, ok := ps.assetManager.GetData(asset).(*resources.ImageData); ok {
				ps.generateForResolutions(path, asset.ID, data.Image, resolution)
				if entry, ok := ps.lookupCache(path, resolution); ok {
					ps.fireReady(taskID, path, entry)
					return taskID
				}
			}
		}
	}

	// Slow path: park the request and queue a load.
	ps.registerPending(&PendingPreviewRequest{
		TaskID:     taskID,
		Path:       path,
		Resolution: resolution,
		Mode:       mode,
	})
	ps.loader.Submit(path, LoadPriorityPreload)
	return taskID
}

// PendingCount reports how many preview tasks are still waiting.
func (ps *PreviewSystem) PendingCount() int {
	return ps.tasks.PendingCount()
}

func (ps *PreviewSystem) registerPending(req *PendingPreviewRequest) {
	ps.tasks.RegisterTask(req)
	ps.pendingByPath[req.Path] = append(ps.pendingByPath[req.Path], req.TaskID)
}

// takePending removes and returns every live request waiting on path.
func (ps *PreviewSystem) takePending(path string) []*PendingPreviewRequest {
	taskIDs := ps.pendingByPath[path]
	if len(taskIDs) == 0 {
		return nil
	}
	delete(ps.pendingByPath, path)

	reqs := make([]*PendingPreviewRequest, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		if req, ok := ps.tasks.Get(taskID); ok {
			reqs = append(reqs, req)
		}
		ps.tasks.RemoveTask(taskID)
	}
	return reqs
}

func (ps *PreviewSystem) lookupCache(path string, resolution uint32) (*PreviewCacheEntry, bool) {
	if resolution == 0 {
		return ps.cache.GetBestByPath(path)
	}
	return ps.cache.GetByPath(path, resolution)
}

func (ps *PreviewSystem) fireReady(taskID uint64, path string, entry *PreviewCacheEntry) {
	ps.events.Fire(core.EVENT_CODE_PREVIEW_READY, ps, core.EventContext{
		TaskID:  taskID,
		Path:    path,
		AssetID: entry.AssetID,
		Image:   entry.Image,
	})
}

func (ps *PreviewSystem) fireFailed(taskID uint64, path string, err error) {
	ps.events.Fire(core.EVENT_CODE_PREVIEW_FAILED, ps, core.EventContext{
		TaskID: taskID,
		Path:   path,
		Err:    err,
	})
}

// ResizeImageForPreview scales src down so its longer edge equals target,
// keeping aspect ratio with truncating arithmetic. Returns nil when src
// already fits inside target on both dimensions; the caller reuses the
// original in that case.
func ResizeImageForPreview(src *resources.Image, target uint32) *resources.Image {
	if src.Width <= target && src.Height <= target {
		return nil
	}

	var w, h uint32
	if src.Width >= src.Height {
		w = target
		h = uint32(uint64(src.Height) * uint64(target) / uint64(src.Width))
	} else {
		h = target
		w = uint32(uint64(src.Width) * uint64(target) / uint64(src.Height))
	}
	if w == 0 {
		w = 1
	}
	if h == 0 {
		h = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, int(w), int(h)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src.Pixels, src.Pixels.Bounds(), draw.Src, nil)

	return &resources.Image{
		ID:     uuid.New(),
		Name:   src.Name,
		Width:  w,
		Height: h,
		Pixels: dst,
	}
}

// generateForResolutions fills the cache with one preview per configured
// resolution, skipping resolutions already cached. Callers pass the exact
// resolutions their requesters asked for, which may fall outside the
// configured set; those are generated as well. Sources smaller than a
// target resolution are cached unscaled.
func (ps *PreviewSystem) generateForResolutions(path string, assetID uuid.UUID, src *resources.Image, requested ...uint32) {
	for _, resolution := range ps.config.Resolutions {
		ps.generateOne(path, assetID, src, resolution)
	}
	for _, resolution := range requested {
		// 0 means best available; the configured set covers it.
		if resolution == 0 {
			continue
		}
		ps.generateOne(path, assetID, src, resolution)
	}
}

func (ps *PreviewSystem) generateOne(path string, assetID uuid.UUID, src *resources.Image, resolution uint32) {
	if _, ok := ps.cache.entries[EncodeCachePath(path, resolution)]; ok {
		return
	}
	img := ResizeImageForPreview(src, resolution)
	if img == nil {
		img = src
	}
	ps.cache.Insert(path, assetID, resolution, img)
	ps.metrics.IncPreviewGenerated()
}

// CompleteFromRender caches a rendered preview and notifies the requester.
// Called by the render view system once a screenshot is captured.
func (ps *PreviewSystem) CompleteFromRender(req *PendingPreviewRequest, assetID uuid.UUID, captured *resources.Image) {
	ps.generateForResolutions(req.Path, assetID, captured, req.Resolution)
	if entry, ok := ps.lookupCache(req.Path, req.Resolution); ok {
		ps.fireReady(req.TaskID, req.Path, entry)
		return
	}
	ps.fireFailed(req.TaskID, req.Path, &core.ImageConversionError{Reason: "rendered preview missing from cache"})
}

// FailFromRender notifies the requester that the 3D stage could not
// produce a preview.
func (ps *PreviewSystem) FailFromRender(req *PendingPreviewRequest, err error) {
	ps.fireFailed(req.TaskID, req.Path, err)
}

func (ps *PreviewSystem) onAssetLoaded(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	pending := ps.takePending(data.Path)
	if len(pending) == 0 {
		return false
	}

	asset := ps.assetManager.GetByID(data.AssetID)
	if asset == nil {
		for _, req := range pending {
			ps.fireFailed(req.TaskID, req.Path, &core.AssetLoadError{Path: req.Path, Reason: "asset vanished after load"})
		}
		return false
	}

	switch payload := ps.assetManager.GetData(asset).(type) {
	case *resources.ImageData:
		requested := make([]uint32, 0, len(pending))
		for _, req := range pending {
			requested = append(requested, req.Resolution)
		}
		ps.generateForResolutions(data.Path, asset.ID, payload.Image, requested...)
		for _, req := range pending {
			req.RequestType = RequestImage2D{}
			if entry, ok := ps.lookupCache(req.Path, req.Resolution); ok {
				ps.fireReady(req.TaskID, req.Path, entry)
			} else {
				ps.fireFailed(req.TaskID, req.Path, &core.ImageConversionError{Reason: "generated preview missing from cache"})
			}
		}

	case *resources.MaterialData:
		ps.stageForRender(pending, asset, RequestMaterial{Handle: asset})

	case *resources.ModelData:
		if asset.Type == resources.AssetTypeMesh {
			ps.stageForRender(pending, asset, RequestMesh{Handle: asset})
		} else {
			ps.stageForRender(pending, asset, RequestModelFile{Handle: asset, Format: payload.Model.Format})
		}

	default:
		for _, req := range pending {
			ps.fireFailed(req.TaskID, req.Path, &core.AssetLoadError{Path: req.Path, Reason: "asset payload has no preview representation"})
		}
	}
	return false
}

// stageForRender hands loaded 3D content over to the render view system,
// which owns the request until a screenshot completes.
func (ps *PreviewSystem) stageForRender(pending []*PendingPreviewRequest, asset *assets.Asset, requestType PreviewRequestType) {
	if ps.renderView == nil {
		for _, req := range pending {
			ps.fireFailed(req.TaskID, req.Path, &core.ImageConversionError{Reason: "no render backend available for 3D previews"})
		}
		return
	}
	for _, req := range pending {
		req.RequestType = requestType
		req.Mode = PreviewModeEntity
		ps.renderView.Stage(req, asset)
	}
}

func (ps *PreviewSystem) onAssetFailed(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	for _, req := range ps.takePending(data.Path) {
		ps.fireFailed(req.TaskID, req.Path, data.Err)
	}
	return false
}

func (ps *PreviewSystem) onAssetRemoved(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	ps.cache.RemoveAllByID(data.AssetID)
	ps.cache.RemoveAllByPath(data.Path)
	for _, req := range ps.takePending(data.Path) {
		ps.fireFailed(req.TaskID, req.Path, &core.AssetRemovedError{Path: req.Path})
	}
	return false
}

func (ps *PreviewSystem) onAssetHotReloaded(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	// Stale previews must never be served for a changed asset.
	ps.cache.RemoveAllByPath(data.Path)
	ps.cache.RemoveAllByID(data.AssetID)
	return false
}

func (ps *PreviewSystem) Shutdown() error {
	ps.events.Unregister(core.EVENT_CODE_ASSET_LOAD_COMPLETED, ps)
	ps.events.Unregister(core.EVENT_CODE_ASSET_LOAD_FAILED, ps)
	ps.events.Unregister(core.EVENT_CODE_ASSET_REMOVED, ps)
	ps.events.Unregister(core.EVENT_CODE_ASSET_HOT_RELOADED, ps)
	return nil
}
