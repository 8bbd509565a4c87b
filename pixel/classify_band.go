package pixel

import (
	"fmt"

	"github.com/scrnlab/sclc/squad"
)

// bandJob implements squad.Job for parallel I-frame classification: each
// worker classifies its assigned row band into its own Span slice, which
// the dispatcher concatenates afterward in worker order — row bands are
// contiguous and monotonically increasing (squad.Worker.GetSegment),
// so concatenation reproduces raster order exactly.
type bandJob struct {
	cur, prev *Plane
	isIFrame  bool
	bootstrap int // linear pixel indices below this are always PredLiteral
	results   [][]Span
}

// RunCommand classifies this worker's row band. A panic here (an
// out-of-bounds band, a corrupt Plane) would otherwise kill the worker
// goroutine silently; recovering it into the squad's fatal flag lets the
// dispatcher surface it as a normal error instead (spec.md §7 "a worker
// that hits a fatal condition sets a shared flag which the dispatcher
// checks").
func (j *bandJob) RunCommand(command int, params interface{}, w *squad.Worker) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				w.SetFatal(err)
				return
			}
			w.SetFatal(fmt.Errorf("pixel: classify worker %d panicked: %v", w.MyNum(), r))
		}
	}()

	start, size := w.GetSegment(j.cur.H)
	if size == 0 {
		return
	}
	ids := make([]int, 0, size*j.cur.W)
	for y := start; y < start+size; y++ {
		for x := 0; x < j.cur.W; x++ {
			if y*j.cur.W+x < j.bootstrap {
				ids = append(ids, PredLiteral)
				continue
			}
			ids = append(ids, Classify(j.cur, j.prev, x, y, j.isIFrame))
		}
	}
	pixelAt := func(i int) [bpp]byte {
		row := start + i/j.cur.W
		col := i % j.cur.W
		var px [bpp]byte
		for c := 0; c < bpp; c++ {
			px[c] = j.cur.at(col, row, c)
		}
		return px
	}
	j.results[w.MyNum()] = BuildSpans(ids, pixelAt)
}

// ClassifyImageParallel classifies every pixel of cur across sq's worker
// pool, returning spans in raster order. The image's first row plus one
// pixel is always forced to PredLiteral (spec.md's image-bootstrap rule,
// grounded on original_source/screencap.cpp:348-361's "first row and one
// pixel" literal run predating any classified span): pixel (0,0) is never
// itself classified, since nothing precedes it to classify against.
func ClassifyImageParallel(sq *squad.Squad, cur, prev *Plane, isIFrame bool) []Span {
	j := &bandJob{cur: cur, prev: prev, isIFrame: isIFrame, bootstrap: cur.W + 1, results: make([][]Span, sq.NumThreads())}
	sq.RunParallel(0, nil, j)
	var out []Span
	for _, spans := range j.results {
		out = append(out, spans...)
	}
	return out
}
