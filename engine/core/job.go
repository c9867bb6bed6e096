package core

// JobTask is one unit of background work: decode, encode, IO. OnStart runs
// on a worker goroutine; exactly one of OnComplete/OnFailure runs after it,
// still on the worker. Anything the callbacks touch that the scheduler tick
// also touches must go through a buffer the tick drains.
type JobTask struct {
	OnStart    func() (interface{}, error)
	OnComplete func(result interface{})
	OnFailure  func(err error)
}
