package systems

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/spaghettifunk/vetrina/engine/core"
	"github.com/spaghettifunk/vetrina/engine/resources"
)

// PreviewCacheEntry is one cached preview image at one resolution.
type PreviewCacheEntry struct {
	Image      *resources.Image
	AssetID    uuid.UUID
	Resolution uint32
	// Timestamp is whole seconds on the engine clock when the entry was
	// inserted. Informational; eviction is explicit, not time-based.
	Timestamp uint64
}

// EncodeCachePath derives the resolution-qualified cache key for a source
// path: "dir/base_{r}x{r}.ext". The encoding is invertible so keys can be
// mapped back to their source path and resolution.
func EncodeCachePath(path string, resolution uint32) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_%dx%d%s", base, resolution, resolution, ext)
}

// DecodeCachePath recovers the source path and resolution from an encoded
// cache key. Returns false when the key does not carry the suffix.
func DecodeCachePath(key string) (string, uint32, bool) {
	ext := filepath.Ext(key)
	base := strings.TrimSuffix(key, ext)

	idx := strings.LastIndex(base, "_")
	if idx < 0 {
		return "", 0, false
	}
	var w, h uint32
	if n, err := fmt.Sscanf(base[idx:], "_%dx%d", &w, &h); n != 2 || err != nil || w != h {
		return "", 0, false
	}
	return base[:idx] + ext, w, true
}

// PreviewCache holds generated previews keyed by encoded source path and,
// in a mirror index, by the asset's resource identity. Owned by the
// preview system and mutated only from the scheduler tick.
type PreviewCache struct {
	// entries is keyed by EncodeCachePath(source, resolution).
	entries map[string]*PreviewCacheEntry
	// byID mirrors entries: every key appears under exactly one asset id.
	byID map[uuid.UUID][]string
	// resolutions lists the cached resolutions per source path, ascending,
	// so best-available lookups take the last element.
	resolutions map[string][]uint32

	clock   *core.Clock
	metrics *core.Metrics
}

func NewPreviewCache(clock *core.Clock, metrics *core.Metrics) *PreviewCache {
	return &PreviewCache{
		entries:     make(map[string]*PreviewCacheEntry),
		byID:        make(map[uuid.UUID][]string),
		resolutions: make(map[string][]uint32),
		clock:       clock,
		metrics:     metrics,
	}
}

// GetByPath returns the cached preview for the exact path and resolution.
func (pc *PreviewCache) GetByPath(path string, resolution uint32) (*PreviewCacheEntry, bool) {
	entry, ok := pc.entries[EncodeCachePath(path, resolution)]
	if ok {
		pc.metrics.IncCacheHit()
	} else {
		pc.metrics.IncCacheMiss()
	}
	return entry, ok
}

// GetBestByPath returns the highest-resolution preview cached for the path.
func (pc *PreviewCache) GetBestByPath(path string) (*PreviewCacheEntry, bool) {
	res, ok := pc.resolutions[path]
	if !ok || len(res) == 0 {
		pc.metrics.IncCacheMiss()
		return nil, false
	}
	entry, ok := pc.entries[EncodeCachePath(path, res[len(res)-1])]
	if !ok {
		pc.metrics.IncCacheMiss()
		return nil, false
	}
	pc.metrics.IncCacheHit()
	return entry, true
}

// GetByID returns every cached preview for the asset identity.
func (pc *PreviewCache) GetByID(id uuid.UUID) []*PreviewCacheEntry {
	keys := pc.byID[id]
	out := make([]*PreviewCacheEntry, 0, len(keys))
	for _, key := range keys {
		if entry, ok := pc.entries[key]; ok {
			out = append(out, entry)
		}
	}
	return out
}

// Insert stores a preview for the source path at the given resolution,
// overwriting any previous entry for the same key and keeping both mirror
// indexes consistent.
func (pc *PreviewCache) Insert(path string, assetID uuid.UUID, resolution uint32, img *resources.Image) {
	key := EncodeCachePath(path, resolution)

	// Overwrites may change the owning asset id; drop the stale mirror
	// entry first.
	if prev, ok := pc.entries[key]; ok {
		pc.dropIDKey(prev.AssetID, key)
	}

	var ts uint64
	if pc.clock != nil {
		pc.clock.Update()
		ts = pc.clock.ElapsedSeconds()
	}
	pc.entries[key] = &PreviewCacheEntry{
		Image:      img,
		AssetID:    assetID,
		Resolution: resolution,
		Timestamp:  ts,
	}
	pc.byID[assetID] = append(pc.byID[assetID], key)

	res := pc.resolutions[path]
	idx := sort.Search(len(res), func(i int) bool { return res[i] >= resolution })
	if idx == len(res) || res[idx] != resolution {
		res = append(res, 0)
		copy(res[idx+1:], res[idx:])
		res[idx] = resolution
		pc.resolutions[path] = res
	}
}

// RemoveByPath drops the single entry for the path at the resolution.
func (pc *PreviewCache) RemoveByPath(path string, resolution uint32) bool {
	return pc.removeKey(EncodeCachePath(path, resolution))
}

// RemoveAllByPath drops every cached resolution of the path.
func (pc *PreviewCache) RemoveAllByPath(path string) int {
	res := pc.resolutions[path]
	removed := 0
	for _, r := range append([]uint32(nil), res...) {
		if pc.removeKey(EncodeCachePath(path, r)) {
			removed++
		}
	}
	return removed
}

// RemoveByID drops the entry for the asset identity at the resolution.
func (pc *PreviewCache) RemoveByID(id uuid.UUID, resolution uint32) bool {
	for _, key := range append([]string(nil), pc.byID[id]...) {
		entry, ok := pc.entries[key]
		if ok && entry.Resolution == resolution {
			return pc.removeKey(key)
		}
	}
	return false
}

// RemoveAllByID drops every cached preview for the asset identity.
func (pc *PreviewCache) RemoveAllByID(id uuid.UUID) int {
	removed := 0
	for _, key := range append([]string(nil), pc.byID[id]...) {
		if pc.removeKey(key) {
			removed++
		}
	}
	return removed
}

func (pc *PreviewCache) Len() int {
	return len(pc.entries)
}

// Clear empties the cache and both mirror indexes.
func (pc *PreviewCache) Clear() {
	pc.entries = make(map[string]*PreviewCacheEntry)
	pc.byID = make(map[uuid.UUID][]string)
	pc.resolutions = make(map[string][]uint32)
}

// removeKey is the single mutation path for removals; it keeps entries,
// byID and resolutions consistent and prunes empty index slots.
func (pc *PreviewCache) removeKey(key string) bool {
	entry, ok := pc.entries[key]
	if !ok {
		return false
	}
	delete(pc.entries, key)
	pc.dropIDKey(entry.AssetID, key)

	if path, resolution, ok := DecodeCachePath(key); ok {
		res := pc.resolutions[path]
		for i, r := range res {
			if r == resolution {
				pc.resolutions[path] = append(res[:i], res[i+1:]...)
				break
			}
		}
		if len(pc.resolutions[path]) == 0 {
			delete(pc.resolutions, path)
		}
	}
	return true
}

func (pc *PreviewCache) dropIDKey(id uuid.UUID, key string) {
	keys := pc.byID[id]
	for i, k := range keys {
		if k == key {
			pc.byID[id] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	if len(pc.byID[id]) == 0 {
		delete(pc.byID, id)
	}
}
