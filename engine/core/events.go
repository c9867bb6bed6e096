package core

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/vetrina/engine/resources"
)

// EventContext is the payload delivered with every fired event. Only the
// fields relevant to the event code are populated.
type EventContext struct {
	// TaskID of the originating request (load, preview or save ID space,
	// depending on the code).
	TaskID uint64
	// Path of the asset the event refers to.
	Path string
	// AssetID is the asset system's own identity for the resource.
	AssetID uuid.UUID
	// Image is the preview or source image handle, when one exists.
	Image *resources.Image
	// Err carries the failure for *_FAILED and SAVE_COMPLETED events.
	Err error
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// An underlying asset finished loading with all its dependencies.
	EVENT_CODE_ASSET_LOAD_COMPLETED SystemEventCode = 0x01

	// An underlying asset load failed. Err carries the reason.
	EVENT_CODE_ASSET_LOAD_FAILED SystemEventCode = 0x02

	// A watched asset changed on disk.
	EVENT_CODE_ASSET_HOT_RELOADED SystemEventCode = 0x03

	// A watched asset was removed from disk or the asset system.
	EVENT_CODE_ASSET_REMOVED SystemEventCode = 0x04

	// A preview image is available. Image carries the handle.
	EVENT_CODE_PREVIEW_READY SystemEventCode = 0x05

	// A preview request failed terminally.
	EVENT_CODE_PREVIEW_FAILED SystemEventCode = 0x06

	// A save task finished. Err is nil on success.
	EVENT_CODE_SAVE_COMPLETED SystemEventCode = 0x07

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listenerInst interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventCodeEntry struct {
	events []*registeredEvent
}

// EventSystem routes fired events to registered listeners. It is owned by
// the engine and mutated only from the scheduler tick.
type EventSystem struct {
	// Lookup table for event codes.
	registered [MAX_EVENT_CODE + 1]eventCodeEntry
}

func NewEventSystem() *EventSystem {
	return &EventSystem{}
}

// Register listens for events sent with the provided code. Duplicate
// listener registrations for the same code are rejected and return false.
func (es *EventSystem) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if code < 0 || code > MAX_EVENT_CODE || onEvent == nil {
		return false
	}
	for _, e := range es.registered[code].events {
		if e.listener == listener {
			LogWarn("event listener already registered for code 0x%02x", int(code))
			return false
		}
	}
	es.registered[code].events = append(es.registered[code].events, &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// Unregister stops listening for the provided code. Returns false if no
// matching registration is found.
func (es *EventSystem) Unregister(code SystemEventCode, listener interface{}) bool {
	if code < 0 || code > MAX_EVENT_CODE {
		return false
	}
	entries := es.registered[code].events
	for i, e := range entries {
		if e.listener == listener {
			es.registered[code].events = append(entries[:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

// Fire sends an event to listeners of the given code. If a handler returns
// true the event is considered handled and is not passed on to any more
// listeners. Returns true if handled.
func (es *EventSystem) Fire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if code < 0 || code > MAX_EVENT_CODE {
		return false
	}
	for _, e := range es.registered[code].events {
		if e.callback(code, sender, e.listener, context) {
			// Message has been handled, do not send to other listeners.
			return true
		}
	}
	return false
}
