package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/spaghettifunk/vetrina/engine/assets/loaders"
	"github.com/spaghettifunk/vetrina/engine/containers"
	"github.com/spaghettifunk/vetrina/engine/core"
	"github.com/spaghettifunk/vetrina/engine/resources"
)

// LoadState of an asset handle.
type LoadState int

const (
	LoadStateNotLoaded LoadState = iota
	LoadStateLoading
	LoadStateLoaded
	LoadStateFailed
)

// Asset is the handle the asset system returns for a path. Repeated loads
// of the same path return the same handle. The manager owns all mutation;
// consumers read state through LoadState and Data through GetData.
type Asset struct {
	ID         uuid.UUID
	Path       string
	Type       resources.AssetType
	Generation uint32
	LastLoaded time.Time

	state LoadState
	data  resources.Data
	err   error
}

// EventKind discriminates asset event stream variants.
type EventKind int

const (
	EventLoadedWithDependencies EventKind = iota
	EventModified
	EventRemoved
	EventFailed
)

// Event is one entry of the asset system's event stream, keyed by the
// asset's own identity (not by any scheduler task id).
type Event struct {
	Kind EventKind
	ID   uuid.UUID
	Path string
	Err  error
}

const eventBufferSize = 1024

// AssetManager watches an asset directory, hands out idempotent load
// handles and emits a buffered event stream. Decode work runs on the
// injected job runner; events are buffered and drained once per tick.
type AssetManager struct {
	mutex  sync.RWMutex
	assets map[string]*Asset
	byID   map[uuid.UUID]*Asset

	loaders map[resources.AssetType]Loader
	jobs    JobRunner

	eventsMu sync.Mutex
	events   *containers.RingQueue[Event]

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	baseDir  string
}

func NewAssetManager(jobs JobRunner) (*AssetManager, error) {
	if jobs == nil {
		return nil, errors.New("asset manager requires a job runner")
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]*Asset),
		byID:     make(map[uuid.UUID]*Asset),
		loaders:  make(map[resources.AssetType]Loader),
		jobs:     jobs,
		events:   containers.NewRingQueue[Event](eventBufferSize),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

// Initialize registers the built-in loaders, indexes assetsDir recursively
// and starts the hot-reload watcher.
func (am *AssetManager) Initialize(assetsDir string) error {
	am.baseDir = assetsDir

	am.registerLoader(resources.AssetTypeImage, &loaders.ImageLoader{})
	am.registerLoader(resources.AssetTypeMaterial, &loaders.MaterialLoader{})
	am.registerLoader(resources.AssetTypeMesh, &loaders.ModelLoader{})
	am.registerLoader(resources.AssetTypeModel, &loaders.ModelLoader{})

	go am.watch()

	return am.addRecursive(assetsDir)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType resources.AssetType, loader Loader) {
	am.loaders[assetType] = loader
}

// Load returns the handle for path, creating it on first use. Repeated
// calls with the same path return the same handle. A decode job is started
// when the asset has never loaded or previously failed.
func (am *AssetManager) Load(path string) *Asset {
	am.mutex.Lock()
	asset, exists := am.assets[path]
	if !exists {
		asset = &Asset{
			ID:   uuid.New(),
			Path: path,
			Type: resources.DetermineAssetType(path),
		}
		am.assets[path] = asset
		am.byID[asset.ID] = asset
	}

	start := asset.state == LoadStateNotLoaded || asset.state == LoadStateFailed
	if start {
		asset.state = LoadStateLoading
		asset.err = nil
	}
	am.mutex.Unlock()

	if start {
		am.startDecode(asset)
	}
	return asset
}

// Get returns the existing handle for path without triggering a load.
func (am *AssetManager) Get(path string) *Asset {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return am.assets[path]
}

// GetByID resolves an asset by its resource identity.
func (am *AssetManager) GetByID(id uuid.UUID) *Asset {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return am.byID[id]
}

// LoadState reports the current state of a handle.
func (am *AssetManager) LoadState(asset *Asset) LoadState {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return asset.state
}

// GetData returns the decoded payload, or nil while loading/failed.
func (am *AssetManager) GetData(asset *Asset) resources.Data {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return asset.data
}

// LoadError returns the terminal decode error, if any.
func (am *AssetManager) LoadError(asset *Asset) error {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return asset.err
}

// DrainEvents empties the buffered event stream. Called once per scheduler
// tick by the load system; there is exactly one consumer.
func (am *AssetManager) DrainEvents() []Event {
	am.eventsMu.Lock()
	defer am.eventsMu.Unlock()

	if am.events.IsEmpty() {
		return nil
	}
	drained := make([]Event, 0, am.events.Len())
	for {
		e, err := am.events.Dequeue()
		if err != nil {
			break
		}
		drained = append(drained, e)
	}
	return drained
}

func (am *AssetManager) pushEvent(e Event) {
	am.eventsMu.Lock()
	defer am.eventsMu.Unlock()

	if am.events.IsFull() {
		// Drop the oldest event rather than block a worker.
		if old, err := am.events.Dequeue(); err == nil {
			core.LogWarn("asset event buffer full, dropping event for '%s'", old.Path)
		}
	}
	_ = am.events.Enqueue(e)
}

func (am *AssetManager) startDecode(asset *Asset) {
	loader, ok := am.loaders[asset.Type]
	if !ok {
		am.failAsset(asset, fmt.Errorf("no loader registered for asset type '%s'", asset.Type))
		return
	}

	am.mutex.RLock()
	gen := asset.Generation
	am.mutex.RUnlock()

	path := asset.Path
	am.jobs.Submit(core.JobTask{
		OnStart: func() (interface{}, error) {
			return loader.Load(path)
		},
		OnComplete: func(result interface{}) {
			data, ok := result.(resources.Data)
			if !ok {
				am.failAsset(asset, fmt.Errorf("loader for '%s' returned unexpected payload", path))
				return
			}
			am.mutex.Lock()
			if asset.Generation != gen {
				// The file changed while the decode was running; those
				// bytes are already stale. Decode again.
				am.mutex.Unlock()
				am.startDecode(asset)
				return
			}
			asset.state = LoadStateLoaded
			asset.data = data
			asset.err = nil
			asset.LastLoaded = time.Now()
			am.mutex.Unlock()

			am.pushEvent(Event{Kind: EventLoadedWithDependencies, ID: asset.ID, Path: path})
		},
		OnFailure: func(err error) {
			am.failAsset(asset, err)
		},
	})
}

func (am *AssetManager) failAsset(asset *Asset, err error) {
	am.mutex.Lock()
	asset.state = LoadStateFailed
	asset.err = err
	am.mutex.Unlock()

	am.pushEvent(Event{Kind: EventFailed, ID: asset.ID, Path: asset.Path, Err: err})
}

// Add starts watching the named file or directory (non-recursively).
func (am *AssetManager) add(name string) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	return am.fsnotify.Add(name)
}

// addRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	return filepath.Walk(name, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (am *AssetManager) watch() {
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleFsEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleFsEvent(e fsnotify.Event) {
	if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.addRecursive(e.Name); err != nil {
				core.LogWarn("asset watcher: failed to watch new directory '%s': %s", e.Name, err.Error())
			}
		}
		return
	}

	am.mutex.Lock()
	asset := am.assets[e.Name]
	am.mutex.Unlock()
	if asset == nil {
		return
	}

	switch {
	case e.Op&fsnotify.Write != 0:
		am.Reload(asset.Path)

	case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		am.mutex.Lock()
		asset.state = LoadStateFailed
		asset.err = &core.AssetRemovedError{Path: asset.Path}
		delete(am.assets, asset.Path)
		delete(am.byID, asset.ID)
		am.mutex.Unlock()
		am.pushEvent(Event{Kind: EventRemoved, ID: asset.ID, Path: asset.Path})
	}
}

// Reload marks the asset at path as changed on disk: the generation is
// bumped, a loaded asset falls back to not-loaded so the next Load decodes
// the new bytes, and a Modified event is emitted. The watcher calls this
// for on-disk writes; the handle and its identity survive the reload.
func (am *AssetManager) Reload(path string) {
	am.mutex.Lock()
	asset := am.assets[path]
	if asset != nil {
		asset.Generation++
		if asset.state == LoadStateLoaded {
			asset.state = LoadStateNotLoaded
		}
	}
	am.mutex.Unlock()

	if asset != nil {
		am.pushEvent(Event{Kind: EventModified, ID: asset.ID, Path: asset.Path})
	}
}

// Remove drops the asset from the index and emits a Removed event. The
// watcher calls this implicitly for on-disk deletions; the engine can call
// it to evict an asset explicitly.
func (am *AssetManager) Remove(path string) {
	am.mutex.Lock()
	asset := am.assets[path]
	if asset != nil {
		delete(am.assets, path)
		delete(am.byID, asset.ID)
		asset.state = LoadStateFailed
		asset.err = &core.AssetRemovedError{Path: path}
	}
	am.mutex.Unlock()

	if asset != nil {
		am.pushEvent(Event{Kind: EventRemoved, ID: asset.ID, Path: path})
	}
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	return nil
}
