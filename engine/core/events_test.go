package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingListener struct {
	seen []EventContext
}

func TestEventSystemRegisterAndFire(t *testing.T) {
	es := NewEventSystem()
	listener := &countingListener{}

	ok := es.Register(EVENT_CODE_PREVIEW_READY, listener, func(code SystemEventCode, sender, inst interface{}, data EventContext) bool {
		l := inst.(*countingListener)
		l.seen = append(l.seen, data)
		return false
	})
	require.True(t, ok)

	handled := es.Fire(EVENT_CODE_PREVIEW_READY, nil, EventContext{TaskID: 7, Path: "a.png"})
	assert.False(t, handled)
	require.Len(t, listener.seen, 1)
	assert.Equal(t, uint64(7), listener.seen[0].TaskID)
	assert.Equal(t, "a.png", listener.seen[0].Path)
}

func TestEventSystemRejectsDuplicateListener(t *testing.T) {
	es := NewEventSystem()
	listener := &countingListener{}
	cb := func(code SystemEventCode, sender, inst interface{}, data EventContext) bool { return false }

	assert.True(t, es.Register(EVENT_CODE_SAVE_COMPLETED, listener, cb))
	assert.False(t, es.Register(EVENT_CODE_SAVE_COMPLETED, listener, cb))
}

func TestEventSystemHandledStopsPropagation(t *testing.T) {
	es := NewEventSystem()
	first := &countingListener{}
	second := &countingListener{}

	es.Register(EVENT_CODE_ASSET_LOAD_COMPLETED, first, func(code SystemEventCode, sender, inst interface{}, data EventContext) bool {
		l := inst.(*countingListener)
		l.seen = append(l.seen, data)
		return true
	})
	es.Register(EVENT_CODE_ASSET_LOAD_COMPLETED, second, func(code SystemEventCode, sender, inst interface{}, data EventContext) bool {
		l := inst.(*countingListener)
		l.seen = append(l.seen, data)
		return false
	})

	handled := es.Fire(EVENT_CODE_ASSET_LOAD_COMPLETED, nil, EventContext{})
	assert.True(t, handled)
	assert.Len(t, first.seen, 1)
	assert.Empty(t, second.seen)
}

func TestEventSystemUnregister(t *testing.T) {
	es := NewEventSystem()
	listener := &countingListener{}

	es.Register(EVENT_CODE_ASSET_REMOVED, listener, func(code SystemEventCode, sender, inst interface{}, data EventContext) bool {
		l := inst.(*countingListener)
		l.seen = append(l.seen, data)
		return false
	})

	require.True(t, es.Unregister(EVENT_CODE_ASSET_REMOVED, listener))
	assert.False(t, es.Unregister(EVENT_CODE_ASSET_REMOVED, listener))

	es.Fire(EVENT_CODE_ASSET_REMOVED, nil, EventContext{})
	assert.Empty(t, listener.seen)
}
