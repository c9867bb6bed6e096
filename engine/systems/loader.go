package systems

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/vetrina/engine/assets"
	"github.com/spaghettifunk/vetrina/engine/containers"
	"github.com/spaghettifunk/vetrina/engine/core"
)

// LoadPriority orders competing load requests. Higher value wins.
type LoadPriority uint8

const (
	// Preload - speculative loads for things scrolled near the viewport.
	LoadPriorityPreload LoadPriority = 1
	// HotReload - an asset changed on disk and must be refreshed.
	LoadPriorityHotReload LoadPriority = 2
	// CurrentAccess - the user is looking at it right now.
	LoadPriorityCurrentAccess LoadPriority = 3
)

func (p LoadPriority) String() string {
	switch p {
	case LoadPriorityCurrentAccess:
		return "current-access"
	case LoadPriorityHotReload:
		return "hot-reload"
	default:
		return "preload"
	}
}

// LoadTask is one queued load request. Immutable once created; popped
// exactly once.
type LoadTask struct {
	Path     string
	Priority LoadPriority
	TaskID   uint64
}

// taskLess: priority descending, then task id ascending, so equal-priority
// tasks pop strictly FIFO.
func taskLess(a, b LoadTask) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.TaskID < b.TaskID
}

// ActiveLoadTask tracks one in-flight load for its lifetime. Owned by a
// tracking entity; destroyed on completion, failure or removal.
type ActiveLoadTask struct {
	TaskID   uint64
	Path     string
	Handle   *assets.Asset
	Priority LoadPriority
}

type AssetLoadSystemConfig struct {
	// MaxConcurrent caps in-flight loads. Defaults to 4.
	MaxConcurrent int
}

// AssetLoadSystem owns the priority queue, the concurrency gate and the
// bookkeeping that routes the asset system's identity-keyed events back to
// task ids. Mutated only from the scheduler tick.
type AssetLoadSystem struct {
	config AssetLoadSystemConfig

	queue       *containers.PriorityQueue[LoadTask]
	nextTaskID  uint64
	activeTasks int

	// taskPaths has an entry iff the task is still live (queued or in
	// flight). handleTrackers/taskToHandle mirror each other through
	// registerTask/cleanupHandle and are never mutated independently.
	// Several tasks can share one handle when the same path is submitted
	// more than once before it loads.
	taskPaths      map[uint64]string
	handleTrackers map[uuid.UUID][]uint32
	taskToHandle   map[uint64]uuid.UUID
	trackers       *core.EntityRegistry

	assetManager *assets.AssetManager
	events       *core.EventSystem
	metrics      *core.Metrics
}

func NewAssetLoadSystem(config AssetLoadSystemConfig, am *assets.AssetManager, es *core.EventSystem, metrics *core.Metrics) (*AssetLoadSystem, error) {
	if am == nil || es == nil {
		return nil, fmt.Errorf("func NewAssetLoadSystem - asset manager and event system are required")
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	return &AssetLoadSystem{
		config:         config,
		queue:          containers.NewPriorityQueue(taskLess),
		taskPaths:      make(map[uint64]string),
		handleTrackers: make(map[uuid.UUID][]uint32),
		taskToHandle:   make(map[uint64]uuid.UUID),
		trackers:       core.NewEntityRegistry(),
		assetManager:   am,
		events:         es,
		metrics:        metrics,
	}, nil
}

// Submit enqueues a load request and returns its task id immediately.
// Never blocks, never fails.
func (ls *AssetLoadSystem) Submit(path string, priority LoadPriority) uint64 {
	taskID := ls.nextTaskID
	ls.nextTaskID++

	ls.queue.Push(LoadTask{Path: path, Priority: priority, TaskID: taskID})
	ls.taskPaths[taskID] = path
	ls.metrics.SetQueueDepth(ls.queue.Len())

	core.LogDebug("submitted load task %d for '%s' at priority %s", taskID, path, priority)
	return taskID
}

// GetTaskPath returns the path for a live task id.
func (ls *AssetLoadSystem) GetTaskPath(taskID uint64) (string, bool) {
	path, ok := ls.taskPaths[taskID]
	return path, ok
}

// QueueLen returns the number of tasks waiting for admission.
func (ls *AssetLoadSystem) QueueLen() int {
	return ls.queue.Len()
}

// PeekNext returns the task that would be admitted next.
func (ls *AssetLoadSystem) PeekNext() (LoadTask, bool) {
	return ls.queue.Peek()
}

// PopNext removes and returns the highest-priority, earliest-submitted task.
func (ls *AssetLoadSystem) PopNext() (LoadTask, bool) {
	task, ok := ls.queue.Pop()
	if ok {
		ls.metrics.SetQueueDepth(ls.queue.Len())
	}
	return task, ok
}

// CanStartTask reports whether the concurrency gate has capacity.
func (ls *AssetLoadSystem) CanStartTask() bool {
	return ls.activeTasks < ls.config.MaxConcurrent
}

// StartTask increments the active task count.
func (ls *AssetLoadSystem) StartTask() {
	ls.activeTasks++
	ls.metrics.SetActiveTasks(ls.activeTasks)
}

// FinishTask decrements the active task count, saturating at zero so
// duplicate completion signals can never underflow it.
func (ls *AssetLoadSystem) FinishTask() {
	if ls.activeTasks > 0 {
		ls.activeTasks--
	}
	ls.metrics.SetActiveTasks(ls.activeTasks)
}

// ActiveTasks returns the current number of in-flight tasks.
func (ls *AssetLoadSystem) ActiveTasks() int {
	return ls.activeTasks
}

// registerTask wires taskID <-> tracking entity <-> resource identity.
// Always paired with cleanupHandle.
func (ls *AssetLoadSystem) registerTask(taskID uint64, handle *assets.Asset, priority LoadPriority) uint32 {
	tracker := ls.trackers.Acquire(&ActiveLoadTask{
		TaskID:   taskID,
		Path:     handle.Path,
		Handle:   handle,
		Priority: priority,
	})
	ls.handleTrackers[handle.ID] = append(ls.handleTrackers[handle.ID], tracker)
	ls.taskToHandle[taskID] = handle.ID
	return tracker
}

// cleanupHandle removes every bookkeeping entry for the handle's tasks and
// releases their tracking entities. Completion signals funnel through here,
// which makes them exactly-once: the first signal empties the handle entry
// the other signals would need.
func (ls *AssetLoadSystem) cleanupHandle(handleID uuid.UUID) {
	trackers := ls.handleTrackers[handleID]
	delete(ls.handleTrackers, handleID)

	for _, tracker := range trackers {
		if active, ok := ls.trackers.Get(tracker).(*ActiveLoadTask); ok {
			delete(ls.taskPaths, active.TaskID)
			delete(ls.taskToHandle, active.TaskID)
		}
		if err := ls.trackers.Release(tracker); err != nil {
			core.LogWarn(err.Error())
		}
	}
}

// tasksFor resolves a resource identity to every active task waiting on it.
func (ls *AssetLoadSystem) tasksFor(handleID uuid.UUID) []*ActiveLoadTask {
	trackers, ok := ls.handleTrackers[handleID]
	if !ok {
		return nil
	}
	active := make([]*ActiveLoadTask, 0, len(trackers))
	for _, tracker := range trackers {
		if task, ok := ls.trackers.Get(tracker).(*ActiveLoadTask); ok {
			active = append(active, task)
		}
	}
	return active
}

// ProcessQueue is the admission pass: pop while capacity remains, issue one
// real load per popped task, track it.
func (ls *AssetLoadSystem) ProcessQueue() {
	for ls.CanStartTask() {
		task, ok := ls.PopNext()
		if !ok {
			break
		}
		handle := ls.assetManager.Load(task.Path)
		ls.StartTask()
		ls.registerTask(task.TaskID, handle, task.Priority)
	}
}

// HandleAssetEvents is the completion-routing pass. It drains the asset
// system's event stream exactly once per tick and runs the fallback
// load-state poll for events that never arrived.
func (ls *AssetLoadSystem) HandleAssetEvents() {
	for _, event := range ls.assetManager.DrainEvents() {
		switch event.Kind {
		case assets.EventLoadedWithDependencies:
			ls.completeHandle(event.ID)

		case assets.EventFailed:
			reason := "asset load failed"
			if event.Err != nil {
				reason = event.Err.Error()
			}
			ls.failHandle(event.ID, &core.AssetLoadError{Path: event.Path, Reason: reason})

		case assets.EventRemoved:
			// An in-flight asset disappearing is a failure, not a no-op.
			ls.failHandle(event.ID, &core.AssetRemovedError{Path: event.Path})
			// Always announce the removal so caches can invalidate.
			ls.events.Fire(core.EVENT_CODE_ASSET_REMOVED, ls, core.EventContext{
				Path:    event.Path,
				AssetID: event.ID,
			})

		case assets.EventModified:
			ls.events.Fire(core.EVENT_CODE_ASSET_HOT_RELOADED, ls, core.EventContext{
				Path:    event.Path,
				AssetID: event.ID,
			})
			// Refresh the asset unless a load is already in flight.
			if len(ls.handleTrackers[event.ID]) == 0 {
				ls.Submit(event.Path, LoadPriorityHotReload)
			}
		}
	}

	ls.pollLoadStates()
}

// completeHandle finishes every task waiting on the handle and fires one
// completion event per task.
func (ls *AssetLoadSystem) completeHandle(handleID uuid.UUID) {
	tasks := ls.tasksFor(handleID)
	if len(tasks) == 0 {
		return
	}
	ls.cleanupHandle(handleID)
	for _, task := range tasks {
		ls.FinishTask()
		ls.events.Fire(core.EVENT_CODE_ASSET_LOAD_COMPLETED, ls, core.EventContext{
			TaskID:  task.TaskID,
			Path:    task.Path,
			AssetID: handleID,
		})
	}
}

// failHandle fails every task waiting on the handle with the given error.
func (ls *AssetLoadSystem) failHandle(handleID uuid.UUID, loadErr error) {
	tasks := ls.tasksFor(handleID)
	if len(tasks) == 0 {
		return
	}
	ls.cleanupHandle(handleID)
	for _, task := range tasks {
		ls.FinishTask()
		ls.events.Fire(core.EVENT_CODE_ASSET_LOAD_FAILED, ls, core.EventContext{
			TaskID:  task.TaskID,
			Path:    task.Path,
			AssetID: handleID,
			Err:     loadErr,
		})
	}
}

// pollLoadStates is the fallback completion signal: inspect load state
// directly for in-flight tasks whose events were missed or dropped.
func (ls *AssetLoadSystem) pollLoadStates() {
	type finished struct {
		handleID uuid.UUID
		handle   *assets.Asset
		failed   bool
	}
	var done []finished

	for handleID, trackers := range ls.handleTrackers {
		if len(trackers) == 0 {
			continue
		}
		task, ok := ls.trackers.Get(trackers[0]).(*ActiveLoadTask)
		if !ok {
			continue
		}
		switch ls.assetManager.LoadState(task.Handle) {
		case assets.LoadStateLoaded:
			done = append(done, finished{handleID: handleID, handle: task.Handle})
		case assets.LoadStateFailed:
			done = append(done, finished{handleID: handleID, handle: task.Handle, failed: true})
		}
	}

	for _, f := range done {
		if !f.failed {
			ls.completeHandle(f.handleID)
			continue
		}
		reason := "asset load failed"
		if err := ls.assetManager.LoadError(f.handle); err != nil {
			reason = err.Error()
		}
		ls.failHandle(f.handleID, &core.AssetLoadError{Path: f.handle.Path, Reason: reason})
	}
}

// Update runs one scheduler tick for the loader: admission strictly before
// completion routing, so a slot freed by a completion is reused next tick,
// never within the same one.
func (ls *AssetLoadSystem) Update() {
	ls.ProcessQueue()
	ls.HandleAssetEvents()
}

func (ls *AssetLoadSystem) Shutdown() error {
	return nil
}
