package block

import (
	"bytes"
	"fmt"

	"github.com/scrnlab/sclc/pixel"
	"github.com/scrnlab/sclc/squad"
)

const bpp = 3

func rowSlice(p *pixel.Plane, x0, y, x1 int) []byte {
	start := (y*p.W + x0) * bpp
	end := (y*p.W + x1) * bpp
	return p.Pix[start:end]
}

// changed reports whether block (bx,by) differs from prev at all
// (row-by-row memcmp, spec.md §4.D "Change detection").
func changed(cur, prev *pixel.Plane, g Grid, bx, by int) bool {
	x0, y0, x1, y1 := g.BlockBounds(bx, by)
	for y := y0; y < y1; y++ {
		if !bytes.Equal(rowSlice(cur, x0, y, x1), rowSlice(prev, x0, y, x1)) {
			return true
		}
	}
	return false
}

// boundingRect computes the tight rectangle of changed pixels within
// block (bx,by), in block-local coordinates, via the standard two-pass
// scan: full changed rows top/bottom first, then left/right within that
// row span.
func boundingRect(cur, prev *pixel.Plane, g Grid, bx, by int) Rect {
	x0, y0, x1, y1 := g.BlockBounds(bx, by)
	top, bottom := -1, -1
	for y := y0; y < y1; y++ {
		if !bytes.Equal(rowSlice(cur, x0, y, x1), rowSlice(prev, x0, y, x1)) {
			if top < 0 {
				top = y
			}
			bottom = y
		}
	}
	left, right := x1, x0
	for y := top; y <= bottom; y++ {
		for x := x0; x < x1; x++ {
			if !bytes.Equal(cur.Pix[(y*cur.W+x)*bpp:(y*cur.W+x)*bpp+bpp], prev.Pix[(y*prev.W+x)*bpp:(y*prev.W+x)*bpp+bpp]) {
				if x < left {
					left = x
				}
				if x > right {
					right = x
				}
			}
		}
	}
	return Rect{X1: left - x0, Y1: top - y0, X2: right - x0 + 1, Y2: bottom - y0 + 1}
}

// Decide classifies block (bx,by): TypeUnchanged, or TypeFullBlock /
// TypePartial with the tight changed rectangle (block-local coordinates).
func Decide(cur, prev *pixel.Plane, g Grid, bx, by int) Info {
	if !changed(cur, prev, g, bx, by) {
		return Info{Type: TypeUnchanged}
	}
	x0, y0, x1, y1 := g.BlockBounds(bx, by)
	r := boundingRect(cur, prev, g, bx, by)
	if r.X1 == 0 && r.Y1 == 0 && r.X2 == x1-x0 && r.Y2 == y1-y0 {
		return Info{Type: TypeFullBlock, Bounds: r}
	}
	return Info{Type: TypePartial, Bounds: r}
}

// DecisionPass runs block decision across every row of blocks in
// parallel over sq's worker pool, with work-stealing across a row-state
// table (spec.md §4.D "Work stealing"): each worker first decides its own
// assigned band of block-rows, then steals any row left Untouched by a
// worker whose band finished early. Motion search for row by can consult
// row by-1's results only once RowTable reports it Done, matching the
// "upper neighbour" rule.
func DecisionPass(sq *squad.Squad, cur, prev *pixel.Plane, g Grid, p Params) [][]Info {
	infos := make([][]Info, g.BH)
	for i := range infos {
		infos[i] = make([]Info, g.BW)
	}
	rows := squad.NewRowTable(g.BH)

	j := &decisionJob{cur: cur, prev: prev, g: g, infos: infos, rows: rows, params: p}
	sq.RunParallel(0, nil, j)
	return infos
}

type decisionJob struct {
	cur, prev *pixel.Plane
	g         Grid
	infos     [][]Info
	rows      *squad.RowTable
	params    Params
}

// RunCommand decides and motion-searches this worker's row band (plus
// whatever rows it steals afterward). A panic here is recovered into the
// squad's fatal flag rather than killing the worker goroutine outright,
// matching bandJob.RunCommand's policy and spec.md §7's worker-sets-flag
// rule.
func (j *decisionJob) RunCommand(command int, params interface{}, w *squad.Worker) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				w.SetFatal(err)
				return
			}
			w.SetFatal(fmt.Errorf("block: decision worker %d panicked: %v", w.MyNum(), r))
		}
	}()

	start, size := w.GetSegment(j.g.BH)
	// last_mvx/last_mvy is scoped to one worker's left-to-right scan of a
	// single row, matching "the previous block's motion vector" — a
	// search-order hint only, never load-bearing for correctness since
	// every candidate is verified by an exact memcmp before being
	// accepted (spec.md §4.D step 1 and the "no row-ordering guarantee"
	// note in §4.D "Work stealing").
	process := func(by int) {
		lastMVX, lastMVY := 0, 0
		for bx := 0; bx < j.g.BW; bx++ {
			info := Decide(j.cur, j.prev, j.g, bx, by)
			if info.Type != TypeUnchanged {
				if mvx, mvy, ok := Search(j.cur, j.prev, j.g, bx, by, info.Bounds, lastMVX, lastMVY, j.rows, j.infos, j.params); ok {
					info.MVX, info.MVY = mvx, mvy
					info.Type += 2
					lastMVX, lastMVY = mvx, mvy
				}
			}
			j.infos[by][bx] = info
		}
		j.rows.MarkDone(by)
	}
	squad.RunRowJob(j.rows, start, size, process)
}
