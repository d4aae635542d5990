package sim

// task is a single scheduled deadline with the function to run when it
// fires.
type task struct {
	deadline  int64
	fn        func(now int64)
	cancelled bool
}

// TaskHandle lets a caller cancel a previously scheduled task before it
// fires. The match lifecycle does not cancel its transitions; each one
// carries its match id and ignores a match that is no longer current.
type TaskHandle struct {
	t *task
}

// Cancel prevents the task from firing. It is a no-op if the task already
// fired or was already cancelled.
func (h TaskHandle) Cancel() {
	if h.t != nil {
		h.t.cancelled = true
	}
}

// Scheduler holds pending deadline-triggered callbacks, drained once per
// tick on the sim loop so no timer ever races the synchronous handlers.
type Scheduler struct {
	tasks []*task
}

// NewScheduler constructs an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule enqueues fn to run the first time Drain is called with
// now >= deadline.
func (s *Scheduler) Schedule(deadline int64, fn func(now int64)) TaskHandle {
	t := &task{deadline: deadline, fn: fn}
	s.tasks = append(s.tasks, t)
	return TaskHandle{t: t}
}

// Drain runs and removes every non-cancelled task whose deadline has
// passed. Safe to call from within a task's own callback (new tasks appended
// during Drain are picked up on the following call, not reentrantly).
func (s *Scheduler) Drain(now int64) {
	remaining := s.tasks[:0]
	var due []*task
	for _, t := range s.tasks {
		if t.cancelled {
			continue
		}
		if now >= t.deadline {
			due = append(due, t)
			continue
		}
		remaining = append(remaining, t)
	}
	s.tasks = remaining
	for _, t := range due {
		t.fn(now)
	}
}

// Pending reports how many tasks remain queued, used by tests.
func (s *Scheduler) Pending() int {
	return len(s.tasks)
}
