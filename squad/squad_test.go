package squad

import (
	"strconv"
	"sync/atomic"
	"testing"
)

type sumJob struct {
	total  int64
	rowsum []int64
}

func (j *sumJob) RunCommand(command int, params interface{}, w *Worker) {
	n := params.(int)
	start, size := w.GetSegment(n)
	var local int64
	for i := start; i < start+size; i++ {
		local += int64(i)
	}
	atomic.AddInt64(&j.total, local)
}

func TestRunParallelCoversEveryElementOnce(t *testing.T) {
	for _, nw := range []int{1, 2, 3, 4, 7} {
		nw := nw
		t.Run(strconv.Itoa(nw), func(t *testing.T) {
			s := New(nw)
			defer s.Stop()
			const n = 997
			j := &sumJob{}
			s.RunParallel(1, n, j)
			var want int64
			for i := 0; i < n; i++ {
				want += int64(i)
			}
			if j.total != want {
				t.Fatalf("nw=%d: got sum %d want %d", nw, j.total, want)
			}
		})
	}
}

func TestGetSegmentFewerRowsThanWorkers(t *testing.T) {
	s := New(5)
	defer s.Stop()
	const n = 3
	var claimed int64
	j := runFn(func(command int, params interface{}, w *Worker) {
		_, size := w.GetSegment(n)
		atomic.AddInt64(&claimed, int64(size))
	})
	s.RunParallel(1, nil, j)
	if claimed != n {
		t.Fatalf("total claimed rows = %d, want %d", claimed, n)
	}
}

func TestRowTableWorkStealing(t *testing.T) {
	const nby = 40
	tbl := NewRowTable(nby)
	s := New(4)
	defer s.Stop()

	var processed int64
	j := runFn(func(command int, params interface{}, w *Worker) {
		start, size := w.GetSegment(nby)
		RunRowJob(tbl, start, size, func(row int) {
			atomic.AddInt64(&processed, 1)
			tbl.MarkDone(row)
		})
	})
	s.RunParallel(1, nil, j)

	if processed != nby {
		t.Fatalf("processed %d rows, want %d", processed, nby)
	}
	for i := 0; i < nby; i++ {
		if !tbl.IsDone(i) {
			t.Fatalf("row %d not marked done", i)
		}
	}
}

func TestFatalFlagSurvivesAcrossRunParallel(t *testing.T) {
	s := New(3)
	defer s.Stop()
	j := runFn(func(command int, params interface{}, w *Worker) {
		if w.MyNum() == 1 {
			s.SetFatal(errBoom)
		}
	})
	s.RunParallel(1, nil, j)
	if err := s.HasFatal(); err != errBoom {
		t.Fatalf("HasFatal = %v, want %v", err, errBoom)
	}
	if err := s.HasFatal(); err != nil {
		t.Fatalf("HasFatal should clear after read, got %v", err)
	}
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

type runFn func(command int, params interface{}, w *Worker)

func (f runFn) RunCommand(command int, params interface{}, w *Worker) { f(command, params, w) }
