package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/vetrina/engine/core"
)

// JobSystem is the worker pool the decode/encode/IO work runs on. The
// scheduler tick never blocks on it; completion flows back through the
// buffers each job's callbacks write to.
type JobSystem struct {
	numWorkers int
	jobQueue   chan core.JobTask
	wg         sync.WaitGroup
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan core.JobTask, channelSize),
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				result, err := job.OnStart()
				if err != nil {
					core.LogError(err.Error())
					if job.OnFailure != nil {
						job.OnFailure(err)
					}
					continue
				}
				if job.OnComplete != nil {
					job.OnComplete(result)
				}
			}
		}()
	}
}

// Shutdown drains the queue and stops the workers.
func (js *JobSystem) Shutdown() error {
	close(js.jobQueue)
	js.wg.Wait()
	return nil
}

// Submit queues the provided job for execution. Blocks when the queue is
// full; use SubmitNonBlocking from latency-sensitive paths.
func (js *JobSystem) Submit(jt core.JobTask) {
	js.jobQueue <- jt
}

// SubmitNonBlocking queues the job and returns immediately.
func (js *JobSystem) SubmitNonBlocking(jt core.JobTask) {
	go js.Submit(jt)
}
