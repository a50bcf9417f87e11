// Package scheduler implements the L8 periodic scheduler: a fixed-size
// job table stepped by elapsed-time, with deadlines advanced by
// next_deadline += period_ms rather than now+period so cadence is
// preserved under jitter. Grounded on
// original_source/flight/core/scheduler/scheduler.c
// (scheduler_register_periodic, scheduler_step).
package scheduler

import "sync"

// MaxJobs is the fixed capacity of the job table, mirroring
// OPENFSW_SCHED_MAX_JOBS.
const MaxJobs = 16

// Job is a periodic callback run by Step once its deadline elapses.
type Job func(nowMs uint32)

type jobSlot struct {
	inUse    bool
	fn       Job
	periodMs uint32
	nextRun  uint32
}

// JobHandle identifies a registered job for later Unregister/SetPeriod calls.
type JobHandle int

// Scheduler is the mutex-guarded fixed-size job table. It is not
// reentrant: Step must not be called concurrently with itself.
type Scheduler struct {
	mu   sync.Mutex
	jobs [MaxJobs]jobSlot
}

// New returns an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// RegisterPeriodic adds fn to run every periodMs, first firing at
// nowMs+periodMs, returning its handle or (-1, false) if the table is full.
func (s *Scheduler) RegisterPeriodic(fn Job, periodMs, nowMs uint32) (JobHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.jobs {
		if !s.jobs[i].inUse {
			s.jobs[i] = jobSlot{
				inUse:    true,
				fn:       fn,
				periodMs: periodMs,
				nextRun:  nowMs + periodMs,
			}
			return JobHandle(i), true
		}
	}
	return -1, false
}

// Unregister removes a job from the table.
func (s *Scheduler) Unregister(h JobHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h >= 0 && int(h) < MaxJobs {
		s.jobs[h] = jobSlot{}
	}
}

// SetPeriod changes a registered job's period without resetting its
// next deadline, used when mode changes alter a job's cadence (e.g.
// health_periodic at 500ms in Safe mode vs. 100ms otherwise).
func (s *Scheduler) SetPeriod(h JobHandle, periodMs uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h >= 0 && int(h) < MaxJobs && s.jobs[h].inUse {
		s.jobs[h].periodMs = periodMs
	}
}

// Step runs every job whose deadline has elapsed as of nowMs. Each due
// job's deadline is advanced by its period (not reset to now+period),
// matching scheduler_step and preserving long-run cadence under jitter.
// A job that runs this call's fn synchronously; Step must not be
// called reentrantly from within a job.
func (s *Scheduler) Step(nowMs uint32) {
	s.mu.Lock()
	type due struct {
		fn Job
	}
	var toRun []due
	for i := range s.jobs {
		j := &s.jobs[i]
		if !j.inUse {
			continue
		}
		if int32(nowMs-j.nextRun) >= 0 {
			toRun = append(toRun, due{fn: j.fn})
			j.nextRun += j.periodMs
		}
	}
	s.mu.Unlock()

	for _, d := range toRun {
		d.fn(nowMs)
	}
}
