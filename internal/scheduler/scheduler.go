// Package scheduler runs tasks one at a time on a single goroutine. It is
// the one logical thread of control the editor core relies on: anything
// that touches the core is submitted here.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("studio.scheduler")

// ErrStopped is returned when submitting to a stopped scheduler.
var ErrStopped = errors.New("scheduler: stopped")

type Task struct {
	Name    string
	Execute func() error
}

type Scheduler struct {
	mu       sync.Mutex
	pending  []Task
	stopped  bool
	running  bool
	wake     chan struct{}
	stopChan chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a stopped-until-run Scheduler. queueSize is the
// initial capacity of the pending queue; the queue grows as needed so
// tasks may schedule further tasks without blocking.
func NewScheduler(queueSize int) *Scheduler {
	return &Scheduler{
		pending:  make([]Task, 0, queueSize),
		wake:     make(chan struct{}, 1),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// RunScheduler starts the scheduler loop
func (s *Scheduler) RunScheduler() {
	s.mu.Lock()
	if s.running || s.stopped {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		for {
			select {
			case <-s.wake:
				s.drain()
			case <-s.stopChan:
				// Stop signal received, drain what is left and exit
				s.drain()
				return
			}
		}
	}()
}

func (s *Scheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		task := s.pending[0]
		s.pending[0] = Task{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		s.execute(task)
	}
}

func (s *Scheduler) execute(task Task) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	log.Debugf("executing %s task", task.Name)
	if err := task.Execute(); err != nil {
		log.Warningf("task %s failed: %v", task.Name, err)
	}
}

// Schedule queues task without waiting for it. It is safe to call from
// inside a running task.
func (s *Scheduler) Schedule(task Task) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.wg.Add(1)
	s.pending = append(s.pending, task)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Post queues fn. Errors from a stopped scheduler are logged and dropped.
func (s *Scheduler) Post(name string, fn func()) {
	err := s.Schedule(Task{Name: name, Execute: func() error {
		fn()
		return nil
	}})
	if err != nil {
		log.Debugf("dropping %s: %v", name, err)
	}
}

// Run queues task and waits until it has executed or ctx is done.
// It must not be called from inside a task.
func (s *Scheduler) Run(ctx context.Context, task Task) error {
	result := make(chan error, 1)
	err := s.Schedule(Task{Name: task.Name, Execute: func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task %s panicked: %v", task.Name, r)
			}
			result <- err
		}()
		return task.Execute()
	}})
	if err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SchedulePeriodicTask queues task every interval until the scheduler stops.
func (s *Scheduler) SchedulePeriodicTask(interval time.Duration, task Task) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Schedule(task); err != nil {
					return
				}
				log.Debugf("scheduled %s", task.Name)
			case <-s.stopChan:
				// Stop scheduling periodic tasks
				return
			}
		}
	}()
}

// StopScheduler refuses new tasks, runs the queued ones and waits for the
// loop to exit. It must not be called from inside a task.
func (s *Scheduler) StopScheduler() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	running := s.running
	s.mu.Unlock()

	log.Infof("stopping scheduler")
	close(s.stopChan)
	if running {
		<-s.done
		s.wg.Wait()
	}
	log.Infof("scheduler stopped")
}
