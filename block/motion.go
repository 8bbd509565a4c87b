package block

import (
	"bytes"

	"github.com/scrnlab/sclc/pixel"
	"github.com/scrnlab/sclc/squad"
)

// Params holds the motion search ranges (spec.md §4.D "Motion search"
// defaults).
type Params struct {
	MSRX, MSRY       int // far sweep range, default 256
	MSRLowX, MSRLowY int // low-range 2-D search range, default 8
}

// DefaultParams returns the spec's documented defaults.
func DefaultParams() Params {
	return Params{MSRX: 256, MSRY: 256, MSRLowX: 8, MSRLowY: 8}
}

// matches reports whether shifting block (bx,by)'s bounding rectangle by
// (mvx, mvy) into prev reproduces cur exactly, row by row.
func matches(cur, prev *pixel.Plane, g Grid, bx, by int, r Rect, mvx, mvy int) bool {
	x0, y0, _, _ := g.BlockBounds(bx, by)
	w := r.X2 - r.X1
	for y := r.Y1; y < r.Y2; y++ {
		cy := y0 + y
		py := cy + mvy
		cx0 := x0 + r.X1
		px0 := cx0 + mvx
		if py < 0 || py >= cur.H || px0 < 0 || px0+w > cur.W {
			return false
		}
		cs := (cy*cur.W + cx0) * bpp
		ps := (py*prev.W + px0) * bpp
		if !bytes.Equal(cur.Pix[cs:cs+w*bpp], prev.Pix[ps:ps+w*bpp]) {
			return false
		}
	}
	return true
}

// Search runs the five-step motion search of spec.md §4.D for block
// (bx,by) whose tight changed rectangle is r. ok is false if no
// candidate produces an exact match.
func Search(cur, prev *pixel.Plane, g Grid, bx, by int, r Rect, lastMVX, lastMVY int, rows *squad.RowTable, infos [][]Info, p Params) (mvx, mvy int, ok bool) {
	// 1. previous block's motion vector
	if matches(cur, prev, g, bx, by, r, lastMVX, lastMVY) {
		return lastMVX, lastMVY, true
	}

	// 2. the block directly above, once it has completed and its vector
	// differs from the one just tried.
	if by > 0 && rows.IsDone(by-1) {
		above := infos[by-1][bx]
		if (above.Type == TypeFullMotion || above.Type == TypePartMotion) &&
			(above.MVX != lastMVX || above.MVY != lastMVY) {
			if matches(cur, prev, g, bx, by, r, above.MVX, above.MVY) {
				return above.MVX, above.MVY, true
			}
		}
	}

	// 3. far vertical sweep, interleaving up/down from 0 out to ±msr_y.
	for d := 1; d <= p.MSRY; d++ {
		if matches(cur, prev, g, bx, by, r, 0, -d) {
			return 0, -d, true
		}
		if matches(cur, prev, g, bx, by, r, 0, d) {
			return 0, d, true
		}
	}

	// 4. far horizontal sweep, interleaving left/right from 0 out to ±msr_x.
	for d := 1; d <= p.MSRX; d++ {
		if matches(cur, prev, g, bx, by, r, -d, 0) {
			return -d, 0, true
		}
		if matches(cur, prev, g, bx, by, r, d, 0) {
			return d, 0, true
		}
	}

	// 5. low-range 2-D search, scanning outward from the centre by
	// columns (original_source/screencap.cpp:780-811): dx sweeps
	// 0,-1,...,-MSRLowX then 1,...,MSRLowX; within each column dy sweeps
	// 0,-1,...,-MSRLowY then 1,...,MSRLowY.
	scanCol := func(dx int) (mvx, mvy int, ok bool) {
		for dy := 0; dy >= -p.MSRLowY; dy-- {
			if dx == 0 && dy == 0 {
				continue
			}
			if matches(cur, prev, g, bx, by, r, dx, dy) {
				return dx, dy, true
			}
		}
		for dy := 1; dy <= p.MSRLowY; dy++ {
			if matches(cur, prev, g, bx, by, r, dx, dy) {
				return dx, dy, true
			}
		}
		return 0, 0, false
	}
	for dx := 0; dx >= -p.MSRLowX; dx-- {
		if mvx, mvy, ok := scanCol(dx); ok {
			return mvx, mvy, true
		}
	}
	for dx := 1; dx <= p.MSRLowX; dx++ {
		if mvx, mvy, ok := scanCol(dx); ok {
			return mvx, mvy, true
		}
	}

	return 0, 0, false
}
