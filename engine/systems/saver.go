package systems

import (
	"bytes"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/conc"

	"github.com/spaghettifunk/vetrina/engine/assets"
	"github.com/spaghettifunk/vetrina/engine/core"
	"github.com/spaghettifunk/vetrina/engine/resources"
)

// SaveResult is the completion record a save worker hands back to the
// scheduler tick.
type SaveResult struct {
	TaskID uint64
	Path   string
	Err    error
}

// SaveTaskTracker owns the save task id space and the set of tasks whose
// completion has not been observed yet. Mutated only from the scheduler
// tick.
type SaveTaskTracker struct {
	nextTaskID uint64
	pending    map[uint64]string
}

func NewSaveTaskTracker() *SaveTaskTracker {
	return &SaveTaskTracker{
		pending: make(map[uint64]string),
	}
}

func (st *SaveTaskTracker) CreateTaskID() uint64 {
	id := st.nextTaskID
	st.nextTaskID++
	return id
}

func (st *SaveTaskTracker) RegisterPending(taskID uint64, path string) {
	st.pending[taskID] = path
}

func (st *SaveTaskTracker) MarkCompleted(taskID uint64) {
	delete(st.pending, taskID)
}

func (st *SaveTaskTracker) IsPending(taskID uint64) bool {
	_, ok := st.pending[taskID]
	return ok
}

func (st *SaveTaskTracker) PendingCount() int {
	return len(st.pending)
}

const saveResultsBuffer = 256

// SaveSystem runs the export pipeline: encode a preview image and write it
// through a storage writer, off the scheduler tick. Completion surfaces as
// a SAVE_COMPLETED event during Update, success and failure alike.
type SaveSystem struct {
	tracker *SaveTaskTracker
	results chan SaveResult
	wg      conc.WaitGroup

	events  *core.EventSystem
	metrics *core.Metrics
}

func NewSaveSystem(es *core.EventSystem, metrics *core.Metrics) (*SaveSystem, error) {
	if es == nil {
		return nil, fmt.Errorf("func NewSaveSystem - an event system is required")
	}
	return &SaveSystem{
		tracker: NewSaveTaskTracker(),
		results: make(chan SaveResult, saveResultsBuffer),
		events:  es,
		metrics: metrics,
	}, nil
}

// Save queues an export of img to targetPath and returns the save task id
// immediately. The extension is forced to the output codec; the caller's
// extension is replaced, not honored. The pipeline runs on its own
// goroutine and never blocks the tick.
func (sv *SaveSystem) Save(img *resources.Image, targetPath string, writer assets.Writer) uint64 {
	taskID := sv.tracker.CreateTaskID()

	ext := filepath.Ext(targetPath)
	targetPath = strings.TrimSuffix(targetPath, ext) + ".png"

	sv.tracker.RegisterPending(taskID, targetPath)

	path := targetPath
	sv.wg.Go(func() {
		sv.results <- SaveResult{
			TaskID: taskID,
			Path:   path,
			Err:    runSave(img, path, writer),
		}
	})
	return taskID
}

// runSave executes the pipeline stages in order. Each stage maps its
// failure to a distinct error type so callers can tell where a save died.
func runSave(img *resources.Image, path string, writer assets.Writer) error {
	if img == nil || img.Pixels == nil {
		return core.ErrImageNotFound
	}

	bounds := img.Pixels.Bounds()
	if uint32(bounds.Dx()) != img.Width || uint32(bounds.Dy()) != img.Height {
		return &core.ImageConversionError{Reason: "pixel buffer dimensions do not match image header"}
	}

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img.Pixels); err != nil {
		return &core.ImageEncodeError{Format: "png", Reason: err.Error()}
	}

	dir := filepath.Dir(path)
	if err := writer.CreateDirectory(dir); err != nil {
		return &core.DirectoryCreationError{Path: dir, Reason: err.Error()}
	}

	if err := writer.WriteBytes(path, encoded.Bytes()); err != nil {
		return &core.FileWriteError{Path: path, Reason: err.Error()}
	}
	return nil
}

// PendingCount reports save tasks whose completion has not surfaced yet.
func (sv *SaveSystem) PendingCount() int {
	return sv.tracker.PendingCount()
}

// IsPending reports whether the save task is still outstanding.
func (sv *SaveSystem) IsPending(taskID uint64) bool {
	return sv.tracker.IsPending(taskID)
}

// Update drains finished saves without blocking and fires one
// SAVE_COMPLETED event per result.
func (sv *SaveSystem) Update() {
	for {
		select {
		case result := <-sv.results:
			sv.complete(result)
		default:
			return
		}
	}
}

func (sv *SaveSystem) complete(result SaveResult) {
	sv.tracker.MarkCompleted(result.TaskID)
	sv.metrics.IncSaveCompleted(result.Err)

	if result.Err != nil {
		core.LogWarn("save task %d for '%s' failed: %s", result.TaskID, result.Path, result.Err.Error())
	}
	sv.events.Fire(core.EVENT_CODE_SAVE_COMPLETED, sv, core.EventContext{
		TaskID: result.TaskID,
		Path:   result.Path,
		Err:    result.Err,
	})
}

// Shutdown waits for in-flight saves, surfacing their completions as it
// waits so workers never block on a full results channel.
func (sv *SaveSystem) Shutdown() error {
	done := make(chan struct{})
	go func() {
		sv.wg.Wait()
		close(done)
	}()

	for {
		select {
		case result := <-sv.results:
			sv.complete(result)
		case <-done:
			sv.Update()
			return nil
		}
	}
}
