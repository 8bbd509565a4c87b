// Package block implements the 16x16 block grid, per-block change
// detection, and motion search of spec.md §4.D.
package block

// Size is the fixed block edge length.
const Size = 16

// Block change types, bumped by +2 on a motion match (1->3, 2->4).
const (
	TypeUnchanged  = 0
	TypeFullBlock  = 1 // whole block differs, no motion found yet
	TypePartial    = 2 // tight sub-rectangle differs, no motion found yet
	TypeFullMotion = 3 // TypeFullBlock + accepted motion vector
	TypePartMotion = 4 // TypePartial + accepted motion vector
)

// Grid describes a frame's partition into 16x16 blocks: bw x bh blocks
// covering a W x H frame, the last column/row possibly truncated.
type Grid struct {
	W, H   int
	BW, BH int // blocks across, down
}

// NewGrid computes the block grid for a W x H frame.
func NewGrid(w, h int) Grid {
	return Grid{W: w, H: h, BW: (w + Size - 1) / Size, BH: (h + Size - 1) / Size}
}

// NumBlocks is BW*BH, the flat block-index space the wire format's two
// 16-bit "low/high block index" fields range over.
func (g Grid) NumBlocks() int { return g.BW * g.BH }

// BlockBounds returns the pixel-space bounding box of block index
// bx, by: [x0, x1) x [y0, y1), clipped to the frame.
func (g Grid) BlockBounds(bx, by int) (x0, y0, x1, y1 int) {
	x0, y0 = bx*Size, by*Size
	x1, y1 = x0+Size, y0+Size
	if x1 > g.W {
		x1 = g.W
	}
	if y1 > g.H {
		y1 = g.H
	}
	return
}

// Rect is a sub-rectangle within a block, in block-local pixel
// coordinates [0, 16).
type Rect struct {
	X1, Y1, X2, Y2 int // [X1,X2) x [Y1,Y2)
}

// Info is one block's decision-pass result.
type Info struct {
	Type     int
	Bounds   Rect // tight changed rectangle, block-local; full block if Type is 1/3
	MVX, MVY int
}
