package block

import (
	"testing"

	"github.com/scrnlab/sclc/pixel"
	"github.com/scrnlab/sclc/squad"
)

func plane(w, h int, fill func(x, y int) byte) *pixel.Plane {
	p := &pixel.Plane{Pix: make([]byte, w*h*bpp), W: w, H: h}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := fill(x, y)
			for c := 0; c < bpp; c++ {
				p.Pix[(y*w+x)*bpp+c] = v
			}
		}
	}
	return p
}

func TestDecideUnchangedBlock(t *testing.T) {
	w, h := 32, 32
	prev := plane(w, h, func(x, y int) byte { return byte(x + y) })
	cur := plane(w, h, func(x, y int) byte { return byte(x + y) })
	g := NewGrid(w, h)
	info := Decide(cur, prev, g, 0, 0)
	if info.Type != TypeUnchanged {
		t.Fatalf("Type = %d, want TypeUnchanged", info.Type)
	}
}

func TestDecideFullBlockChange(t *testing.T) {
	w, h := 32, 32
	prev := plane(w, h, func(x, y int) byte { return 0 })
	cur := plane(w, h, func(x, y int) byte { return 1 })
	g := NewGrid(w, h)
	info := Decide(cur, prev, g, 0, 0)
	if info.Type != TypeFullBlock {
		t.Fatalf("Type = %d, want TypeFullBlock", info.Type)
	}
	if info.Bounds != (Rect{0, 0, Size, Size}) {
		t.Fatalf("Bounds = %+v, want full block", info.Bounds)
	}
}

func TestDecidePartialBlockChange(t *testing.T) {
	w, h := 32, 32
	prev := plane(w, h, func(x, y int) byte { return 0 })
	cur := plane(w, h, func(x, y int) byte {
		if x >= 4 && x < 8 && y >= 4 && y < 8 {
			return 1
		}
		return 0
	})
	g := NewGrid(w, h)
	info := Decide(cur, prev, g, 0, 0)
	if info.Type != TypePartial {
		t.Fatalf("Type = %d, want TypePartial", info.Type)
	}
	want := Rect{X1: 4, Y1: 4, X2: 8, Y2: 8}
	if info.Bounds != want {
		t.Fatalf("Bounds = %+v, want %+v", info.Bounds, want)
	}
}

func TestSearchFindsTranslation(t *testing.T) {
	w, h := 64, 64
	prev := plane(w, h, func(x, y int) byte { return byte((x * 7) ^ (y * 13)) })
	// cur is prev shifted right by 3, down by 2, except the shift leaves a
	// border that can't possibly match (wrapped content), so restrict the
	// block far from the edges.
	cur := &pixel.Plane{Pix: make([]byte, w*h*bpp), W: w, H: h}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := x+3, y+2
			var v byte
			if sx < w && sy < h {
				v = prev.Pix[(sy*w+sx)*bpp]
			}
			for c := 0; c < bpp; c++ {
				cur.Pix[(y*w+x)*bpp+c] = v
			}
		}
	}

	g := NewGrid(w, h)
	bx, by := 2, 2 // block at (32,32), well clear of the shifted border
	info := Decide(cur, prev, g, bx, by)
	if info.Type == TypeUnchanged {
		t.Fatal("expected a changed block")
	}
	rows := squad.NewRowTable(g.BH)
	mvx, mvy, ok := Search(cur, prev, g, bx, by, info.Bounds, 0, 0, rows, nil, DefaultParams())
	if !ok {
		t.Fatal("expected motion search to find a match")
	}
	if mvx != 3 || mvy != 2 {
		t.Fatalf("mv = (%d,%d), want (3,2)", mvx, mvy)
	}
}

// TestSearchLowRangeScansOutwardFromCentre pins the step-5 low-range
// search's tie-break order (original_source/screencap.cpp:780-811): when
// more than one low-range translation matches, the one closest to the
// centre wins, not the most negative one a plain ascending scan would
// have found first.
func TestSearchLowRangeScansOutwardFromCentre(t *testing.T) {
	w, h := 48, 32
	g := NewGrid(w, h)
	bx, by := 1, 0 // block origin (16,0)
	x0, y0, _, _ := g.BlockBounds(bx, by)

	prev := plane(w, h, func(x, y int) byte { return 0 })
	cur := plane(w, h, func(x, y int) byte { return 0 })
	r := Rect{X1: 0, Y1: 0, X2: 2, Y2: 2}

	// P is the rect's content in cur: nonzero, so a translation only
	// matches where prev has been patched with the same values.
	p := [2][2]byte{{100, 101}, {102, 103}}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			setPlane(cur, x0+i, y0+j, p[i][j])
		}
	}
	// Two candidate translations match: dx=-1 (closest to centre) and
	// dx=-4 (furthest). A plain ascending dx scan from -MSRLowX upward
	// would hit -4 first; scanning outward from 0 must hit -1 first.
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			setPlane(prev, x0-1+i, y0+j, p[i][j])
			setPlane(prev, x0-4+i, y0+j, p[i][j])
		}
	}

	params := Params{MSRX: 0, MSRY: 0, MSRLowX: 4, MSRLowY: 0}
	rows := squad.NewRowTable(1)
	mvx, mvy, ok := Search(cur, prev, g, bx, by, r, 5, 5, rows, nil, params)
	if !ok {
		t.Fatal("expected the low-range search to find a match")
	}
	if mvx != -1 || mvy != 0 {
		t.Fatalf("mv = (%d,%d), want (-1,0) — the centre-closest candidate", mvx, mvy)
	}
}

func setPlane(p *pixel.Plane, x, y int, v byte) {
	for c := 0; c < bpp; c++ {
		p.Pix[(y*p.W+x)*bpp+c] = v
	}
}

func TestDecisionPassParallelCoversAllBlocks(t *testing.T) {
	w, h := 128, 96
	prev := plane(w, h, func(x, y int) byte { return byte(x ^ y) })
	cur := plane(w, h, func(x, y int) byte {
		if x > 64 {
			return byte((x ^ y) + 1)
		}
		return byte(x ^ y)
	})
	g := NewGrid(w, h)
	sq := squad.New(4)
	defer sq.Stop()

	infos := DecisionPass(sq, cur, prev, g, DefaultParams())
	if len(infos) != g.BH || len(infos[0]) != g.BW {
		t.Fatalf("infos shape = %dx%d, want %dx%d", len(infos), len(infos[0]), g.BH, g.BW)
	}
	var changedCount int
	for _, row := range infos {
		for _, info := range row {
			if info.Type != TypeUnchanged {
				changedCount++
			}
		}
	}
	if changedCount == 0 {
		t.Fatal("expected some changed blocks")
	}
}
