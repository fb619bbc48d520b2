package scheduler

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// JobProvider builds the batch of jobs for a scheduled run.
type JobProvider func() ([]Job, error)

// Scheduler fires the provider's jobs into the worker pool at fixed
// times of day.
type Scheduler struct {
	pool     *WorkerPool
	provider JobProvider
	times    []scheduleTime

	stop chan struct{}
	wg   sync.WaitGroup
}

type scheduleTime struct {
	hour   int
	minute int
}

// NewScheduler parses the "HH:MM" schedule entries and wires the provider to
// the pool.
func NewScheduler(pool *WorkerPool, provider JobProvider, times []string) (*Scheduler, error) {
	parsed := make([]scheduleTime, 0, len(times))
	for _, t := range times {
		var st scheduleTime
		if _, err := fmt.Sscanf(t, "%d:%d", &st.hour, &st.minute); err != nil {
			return nil, fmt.Errorf("invalid schedule time %q: %w", t, err)
		}
		if st.hour < 0 || st.hour > 23 || st.minute < 0 || st.minute > 59 {
			return nil, fmt.Errorf("schedule time %q out of range", t)
		}
		parsed = append(parsed, st)
	}

	return &Scheduler{
		pool:     pool,
		provider: provider,
		times:    parsed,
		stop:     make(chan struct{}),
	}, nil
}

// Start begins watching the clock. Each schedule time triggers at most once
// per day.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	log.Printf("Scheduler started with %d daily trigger(s)", len(s.times))
}

// RunNow fires the provider immediately, outside the schedule.
func (s *Scheduler) RunNow() {
	s.dispatch()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastFired string
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			for _, st := range s.times {
				if now.Hour() != st.hour || now.Minute() != st.minute {
					continue
				}
				// Key by day and slot so one slot fires once per day even
				// if several ticks land in the same minute.
				key := fmt.Sprintf("%s %02d:%02d", now.Format("2006-01-02"), st.hour, st.minute)
				if key == lastFired {
					continue
				}
				lastFired = key
				s.dispatch()
			}
		}
	}
}

func (s *Scheduler) dispatch() {
	jobs, err := s.provider()
	if err != nil {
		log.Printf("Scheduler: failed to build job batch: %v", err)
		return
	}
	if len(jobs) == 0 {
		log.Println("Scheduler: no jobs to run")
		return
	}
	s.pool.SubmitBatch(jobs)
}

// Stop halts the clock watcher. The pool is shut down separately.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
	log.Println("Scheduler stopped")
}
