package assets

import (
	"github.com/spaghettifunk/vetrina/engine/core"
	"github.com/spaghettifunk/vetrina/engine/resources"
)

// Loader decodes one asset type from disk.
type Loader interface {
	Load(path string) (resources.Data, error)
	Unload(resources.Data) error
}

// JobRunner is the slice of the job system the asset manager needs to push
// decode work off the tick.
type JobRunner interface {
	Submit(jt core.JobTask)
}
