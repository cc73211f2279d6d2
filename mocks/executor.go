package mocks

import (
	"sync"

	"dominicbreuker/netserve/pkg/executor"
)

// RecordingExecutor records spawned tasks without running them until
// told to. It can also be made to refuse tasks.
type RecordingExecutor struct {
	mu      sync.Mutex
	tasks   []func()
	refuse  error
	spawned chan int
}

var _ executor.Executor = (*RecordingExecutor)(nil)

// NewRecordingExecutor creates an executor that holds all tasks.
func NewRecordingExecutor() *RecordingExecutor {
	return &RecordingExecutor{spawned: make(chan int, 1024)}
}

// Spawn records task. It never runs it.
func (e *RecordingExecutor) Spawn(task func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.refuse != nil {
		return e.refuse
	}

	e.tasks = append(e.tasks, task)
	e.spawned <- len(e.tasks)
	return nil
}

// Refuse makes subsequent Spawn calls fail with err. nil accepts again.
func (e *RecordingExecutor) Refuse(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refuse = err
}

// Spawned receives the number of recorded tasks after each Spawn.
func (e *RecordingExecutor) Spawned() <-chan int {
	return e.spawned
}

// Len returns the number of recorded tasks.
func (e *RecordingExecutor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.tasks)
}

// Run runs the i-th recorded task on the caller's goroutine.
func (e *RecordingExecutor) Run(i int) {
	e.mu.Lock()
	task := e.tasks[i]
	e.mu.Unlock()

	task()
}
