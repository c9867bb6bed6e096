package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vetrina/engine/core"
)

func newTestLoadSystem(t *testing.T, maxConcurrent int) (*AssetLoadSystem, *core.EventSystem, string) {
	t.Helper()
	am, dir := newTestAssetManager(t)
	es := core.NewEventSystem()
	ls, err := NewAssetLoadSystem(AssetLoadSystemConfig{MaxConcurrent: maxConcurrent}, am, es, nil)
	require.NoError(t, err)
	return ls, es, dir
}

func TestSubmitPopsByPriorityThenSubmissionOrder(t *testing.T) {
	ls, _, _ := newTestLoadSystem(t, 4)

	a := ls.Submit("a.png", LoadPriorityPreload)
	b := ls.Submit("b.png", LoadPriorityCurrentAccess)
	c := ls.Submit("c.png", LoadPriorityHotReload)
	d := ls.Submit("d.png", LoadPriorityPreload)
	e := ls.Submit("e.png", LoadPriorityCurrentAccess)

	var order []uint64
	for {
		task, ok := ls.PopNext()
		if !ok {
			break
		}
		order = append(order, task.TaskID)
	}
	assert.Equal(t, []uint64{b, e, c, a, d}, order)
}

func TestTaskIDsAreUniqueAndMapped(t *testing.T) {
	ls, _, _ := newTestLoadSystem(t, 4)

	first := ls.Submit("a.png", LoadPriorityPreload)
	second := ls.Submit("a.png", LoadPriorityPreload)
	assert.NotEqual(t, first, second)

	path, ok := ls.GetTaskPath(first)
	require.True(t, ok)
	assert.Equal(t, "a.png", path)
}

func TestConcurrencyGate(t *testing.T) {
	ls, _, _ := newTestLoadSystem(t, 2)

	assert.True(t, ls.CanStartTask())
	ls.StartTask()
	assert.True(t, ls.CanStartTask())
	ls.StartTask()
	assert.False(t, ls.CanStartTask())

	ls.FinishTask()
	assert.True(t, ls.CanStartTask())
}

func TestFinishTaskSaturatesAtZero(t *testing.T) {
	ls, _, _ := newTestLoadSystem(t, 2)

	ls.FinishTask()
	ls.FinishTask()
	assert.Equal(t, 0, ls.ActiveTasks())

	ls.StartTask()
	assert.Equal(t, 1, ls.ActiveTasks())
}

func TestProcessQueueAdmitsUpToCap(t *testing.T) {
	am, dir := newTestAssetManager(t)
	es := core.NewEventSystem()
	ls, err := NewAssetLoadSystem(AssetLoadSystemConfig{MaxConcurrent: 4}, am, es, nil)
	require.NoError(t, err)
	recorder := newEventRecorder(es, core.EVENT_CODE_ASSET_LOAD_COMPLETED)

	var taskIDs []uint64
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png", "e.png"} {
		path := writePNG(t, dir, name, 4, 4)
		taskIDs = append(taskIDs, ls.Submit(path, LoadPriorityPreload))
	}
	require.Equal(t, 5, ls.QueueLen())

	// First pass admits four tasks; the fifth stays queued even though the
	// synchronous runner finished the loads already. The freed capacity is
	// only observed on the next tick.
	ls.ProcessQueue()
	assert.Equal(t, 4, ls.ActiveTasks())
	assert.Equal(t, 1, ls.QueueLen())

	ls.HandleAssetEvents()
	assert.Equal(t, 0, ls.ActiveTasks())
	assert.Len(t, recorder.got(core.EVENT_CODE_ASSET_LOAD_COMPLETED), 4)

	// Second tick drains the remainder.
	ls.Update()
	assert.Equal(t, 0, ls.QueueLen())
	assert.Equal(t, 0, ls.ActiveTasks())

	completed := recorder.got(core.EVENT_CODE_ASSET_LOAD_COMPLETED)
	require.Len(t, completed, 5)

	seen := make(map[uint64]bool)
	for _, event := range completed {
		seen[event.TaskID] = true
	}
	for _, taskID := range taskIDs {
		assert.True(t, seen[taskID], "task %d never completed", taskID)

		// Completion removed all bookkeeping.
		_, live := ls.GetTaskPath(taskID)
		assert.False(t, live)
	}
}

func TestFailedLoadFiresLoadFailed(t *testing.T) {
	am, dir := newTestAssetManager(t)
	es := core.NewEventSystem()
	ls, err := NewAssetLoadSystem(AssetLoadSystemConfig{MaxConcurrent: 4}, am, es, nil)
	require.NoError(t, err)
	recorder := newEventRecorder(es, core.EVENT_CODE_ASSET_LOAD_FAILED)

	taskID := ls.Submit(dir+"/missing.png", LoadPriorityCurrentAccess)
	ls.Update()

	failed := recorder.got(core.EVENT_CODE_ASSET_LOAD_FAILED)
	require.Len(t, failed, 1)
	assert.Equal(t, taskID, failed[0].TaskID)

	var loadErr *core.AssetLoadError
	assert.ErrorAs(t, failed[0].Err, &loadErr)

	assert.Equal(t, 0, ls.ActiveTasks())
	_, live := ls.GetTaskPath(taskID)
	assert.False(t, live)
}

func TestRemovedAssetFiresRemovedEvent(t *testing.T) {
	am, dir := newTestAssetManager(t)
	es := core.NewEventSystem()
	ls, err := NewAssetLoadSystem(AssetLoadSystemConfig{MaxConcurrent: 4}, am, es, nil)
	require.NoError(t, err)
	recorder := newEventRecorder(es, core.EVENT_CODE_ASSET_REMOVED)

	path := writePNG(t, dir, "gone.png", 4, 4)
	ls.Submit(path, LoadPriorityPreload)
	ls.Update()

	am.Remove(path)
	ls.Update()

	removed := recorder.got(core.EVENT_CODE_ASSET_REMOVED)
	require.Len(t, removed, 1)
	assert.Equal(t, path, removed[0].Path)
}

func TestFallbackPollCatchesMissedEvents(t *testing.T) {
	am, dir := newTestAssetManager(t)
	es := core.NewEventSystem()
	ls, err := NewAssetLoadSystem(AssetLoadSystemConfig{MaxConcurrent: 4}, am, es, nil)
	require.NoError(t, err)
	recorder := newEventRecorder(es, core.EVENT_CODE_ASSET_LOAD_COMPLETED)

	path := writePNG(t, dir, "a.png", 4, 4)
	taskID := ls.Submit(path, LoadPriorityPreload)
	ls.ProcessQueue()

	// Swallow the buffered event so only the load-state poll can observe
	// completion.
	am.DrainEvents()

	ls.HandleAssetEvents()

	completed := recorder.got(core.EVENT_CODE_ASSET_LOAD_COMPLETED)
	require.Len(t, completed, 1)
	assert.Equal(t, taskID, completed[0].TaskID)
	assert.Equal(t, 0, ls.ActiveTasks())
}

func TestLoadPriorityString(t *testing.T) {
	assert.Equal(t, "current-access", LoadPriorityCurrentAccess.String())
	assert.Equal(t, "hot-reload", LoadPriorityHotReload.String())
	assert.Equal(t, "preload", LoadPriorityPreload.String())
}
