package vm

import (
	"fmt"

	"go.uber.org/zap"
)

// Job is one queued unit of deferred work (a microtask). Promise reactions
// and settlement deliveries run as jobs.
type Job struct {
	Name string
	fn   func(*VM) error
}

// EnqueueJob appends a job to the FIFO queue. Jobs run on RunJobs and may
// enqueue further jobs.
func (vm *VM) EnqueueJob(name string, fn func(*VM) error) {
	vm.jobs = append(vm.jobs, Job{Name: name, fn: fn})
}

// RunJobs drains the queue to empty, including jobs enqueued while
// draining. A job's script-level exception is logged and the drain
// continues; an engine-level failure stops it.
func (vm *VM) RunJobs() error {
	for len(vm.jobs) > 0 {
		job := vm.jobs[0]
		vm.jobs = vm.jobs[1:]
		if err := job.fn(vm); err != nil {
			if tv, ok := ThrownValue(err); ok {
				vm.log.Warn("job raised",
					zap.String("job", job.Name),
					zap.String("exception", vm.Inspect(tv)))
				continue
			}
			return fmt.Errorf("job %s: %w", job.Name, err)
		}
	}
	return nil
}
