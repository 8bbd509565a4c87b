// Package squad runs a fixed pool of worker goroutines executing named
// parallel tasks, with per-worker segment assignment and work-stealing
// across a shared row-state table.
//
// Grounded on original_source/squad.cpp and squad.h's CSquad/CSquadWorker
// (Win32 events translated to a mutex, a sync.Cond and a generation
// counter for the free/havejob rendezvous, with a WaitGroup joining the
// workers at Stop) and spec.md §4.E / §5.
package squad

import "sync"

// Job is implemented by callers that want work distributed across the
// squad; every worker calls RunCommand with the same command and params
// but its own Worker handle, mirroring ISquadJob::RunCommand.
type Job interface {
	RunCommand(command int, params interface{}, w *Worker)
}

// Squad owns nw worker goroutines. A single goroutine (the dispatcher)
// calls RunParallel; workers never call it themselves.
type Squad struct {
	nw      int
	workers []*Worker

	mu         sync.Mutex
	cond       *sync.Cond
	free       []bool // per-worker: true once it has finished cur_command
	freeCount  int
	curCommand int
	curParams  interface{}
	curJob     Job
	gen        int // bumped each RunParallel to wake workers exactly once

	fatalMu sync.Mutex
	fatal   error // first fatal error reported by any worker, sticky

	wg sync.WaitGroup
}

// Worker is a single squad member's handle, passed to Job.RunCommand.
type Worker struct {
	sq    *Squad
	myNum int
}

// New creates a squad of nThreads workers (minimum 1) and starts them.
func New(nThreads int) *Squad {
	if nThreads < 1 {
		nThreads = 1
	}
	s := &Squad{nw: nThreads, curCommand: -1}
	s.cond = sync.NewCond(&s.mu)
	s.free = make([]bool, nThreads)
	s.workers = make([]*Worker, nThreads)
	for i := 0; i < nThreads; i++ {
		s.workers[i] = &Worker{sq: s, myNum: i}
	}
	if nThreads > 1 {
		s.wg.Add(nThreads)
		for i := 0; i < nThreads; i++ {
			go s.threadProc(s.workers[i])
		}
	}
	return s
}

// NumThreads reports the squad's worker count.
func (s *Squad) NumThreads() int { return s.nw }

// WaitTillAllFree blocks until every worker has finished its current
// command.
func (s *Squad) WaitTillAllFree() {
	if s.nw < 2 {
		return
	}
	s.mu.Lock()
	for s.freeCount < s.nw {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// RunParallel dispatches command/params to every worker and blocks until
// all have finished. With a single worker it just runs the job inline,
// matching the source's nw==1 fast path.
func (s *Squad) RunParallel(command int, params interface{}, job Job) {
	if s.nw == 1 {
		job.RunCommand(command, params, s.workers[0])
		return
	}
	s.mu.Lock()
	s.curCommand = command
	s.curParams = params
	s.curJob = job
	s.gen++
	for i := range s.free {
		s.free[i] = false
	}
	s.freeCount = 0
	s.mu.Unlock()
	s.cond.Broadcast()

	s.WaitTillAllFree()
}

// Stop issues the sentinel command (-1) and waits for every worker
// goroutine to exit, matching CSquad::~CSquad's shutdown sequence.
func (s *Squad) Stop() {
	if s.nw < 2 {
		return
	}
	s.WaitTillAllFree()
	s.mu.Lock()
	s.curCommand = -1
	s.gen++
	s.mu.Unlock()
	s.cond.Broadcast()
	s.wg.Wait()
}

func (s *Squad) threadProc(w *Worker) {
	defer s.wg.Done()
	lastGen := 0
	for {
		s.mu.Lock()
		for s.gen == lastGen {
			s.cond.Wait()
		}
		lastGen = s.gen
		command, params, job := s.curCommand, s.curParams, s.curJob
		s.mu.Unlock()

		if command < 0 {
			return
		}
		job.RunCommand(command, params, w)

		s.mu.Lock()
		if !s.free[w.myNum] {
			s.free[w.myNum] = true
			s.freeCount++
			if s.freeCount == s.nw {
				s.cond.Broadcast()
			}
		}
		s.mu.Unlock()
	}
}

// MyNum returns the worker's index in [0, NumThreads()).
func (w *Worker) MyNum() int { return w.myNum }

// SetFatal records a fatal condition hit while this worker ran its
// command, via the owning squad's sticky fatal flag.
func (w *Worker) SetFatal(err error) { w.sq.SetFatal(err) }

// NumThreads returns the owning squad's worker count.
func (w *Worker) NumThreads() int { return w.sq.nw }

// GetSegment reports which rows of a totalsize-row task this worker
// should process, exactly per CSquadWorker::GetSegment: even row-count
// division when there are at least as many rows as workers, degrading to
// at most one row per worker when there are fewer.
func (w *Worker) GetSegment(totalsize int) (segstart, segsize int) {
	if totalsize >= w.sq.nw {
		segstart = totalsize * w.myNum / w.sq.nw
		segend := totalsize * (w.myNum + 1) / w.sq.nw
		if segend > totalsize {
			segend = totalsize
		}
		return segstart, segend - segstart
	}
	if w.myNum < totalsize {
		return w.myNum, 1
	}
	return 0, 0
}

// SetFatal records a fatal condition hit inside a worker. Per spec.md §7,
// work-stealing workers never propagate errors directly; the dispatcher
// checks HasFatal after WaitTillAllFree instead.
func (s *Squad) SetFatal(err error) {
	s.fatalMu.Lock()
	if s.fatal == nil {
		s.fatal = err
	}
	s.fatalMu.Unlock()
}

// HasFatal reports and clears the first fatal error set by any worker
// since the last call, for the dispatcher to check after RunParallel.
func (s *Squad) HasFatal() error {
	s.fatalMu.Lock()
	defer s.fatalMu.Unlock()
	err := s.fatal
	s.fatal = nil
	return err
}
