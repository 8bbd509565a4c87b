// Package pixel implements the per-pixel predictor classifier and its
// run-length stager: spec.md §4.C. Frames are flat 24-bpp buffers, row
// stride 3*width, channel order as captured (never interpreted as
// R/G/B specifically — the predictors are channel-wise regardless).
//
// Grounded on spec.md §4.C's predictor table and run-length description
// and on original_source/screencap.cpp:502 (GetPixelType) and :525
// (GetPixelTypeP), which fix both the per-predictor arithmetic and the
// first-match candidate order the wire format depends on.
package pixel

// Predictor identifiers, carried on the wire through a 6-symbol
// ctx.FixedModel.
const (
	PredLiteral       = 0
	PredLeft          = 1
	PredAboveRight    = 2
	PredPrevColocated = 3
	PredLeftAboveRightMinusAbove = 4
	PredAbove         = 5
)

// NumPredictors is the fixed-size model arity for predictor ids (spec.md
// §4.A "Fixed-size model" — shared between I- and P-frames; I-frames
// simply never produce id 3).
const NumPredictors = 6

const bpp = 3

// Plane is a flat 24-bpp image buffer: W*H*3 bytes, row-major, stride
// W*3.
type Plane struct {
	Pix    []byte
	W, H   int
}

func (p *Plane) at(x, y, c int) byte { return p.Pix[(y*p.W+x)*bpp+c] }

// Predict computes predictor id's prediction for channel c of pixel
// (x, y). ok is false if the predictor has no valid neighbour at this
// position (first row/column, last column, or no previous frame).
func Predict(id int, cur *Plane, prev *Plane, x, y, c int) (val byte, ok bool) {
	switch id {
	case PredLeft:
		if x == 0 {
			return 0, false
		}
		return cur.at(x-1, y, c), true
	case PredAbove:
		if y == 0 {
			return 0, false
		}
		return cur.at(x, y-1, c), true
	case PredAboveRight:
		if y == 0 || x == cur.W-1 {
			return 0, false
		}
		return cur.at(x+1, y-1, c), true
	case PredPrevColocated:
		if prev == nil {
			return 0, false
		}
		return prev.at(x, y, c), true
	case PredLeftAboveRightMinusAbove:
		if x == 0 || y == 0 || x == cur.W-1 {
			return 0, false
		}
		left := cur.at(x-1, y, c)
		aboveRight := cur.at(x+1, y-1, c)
		above := cur.at(x, y-1, c)
		return left + aboveRight - above, true // byte wraparound, invertible
	default:
		return 0, false
	}
}

// candidateOrder lists predictor ids tried, in order, before falling
// back to a literal. Since Classify takes the first match, this order is
// wire-significant on ties and must match GetPixelType/GetPixelTypeP
// exactly. I-frames never see PredPrevColocated since there is no
// previous frame.
func candidateOrder(isIFrame bool) []int {
	if isIFrame {
		return []int{PredLeft, PredAbove, PredAboveRight, PredLeftAboveRightMinusAbove}
	}
	return []int{PredLeft, PredPrevColocated, PredAbove, PredAboveRight, PredLeftAboveRightMinusAbove}
}

// Classify picks the predictor id for pixel (x, y): the first candidate
// whose prediction matches every channel exactly, or PredLiteral if none
// do.
func Classify(cur, prev *Plane, x, y int, isIFrame bool) int {
	for _, id := range candidateOrder(isIFrame) {
		matched := true
		for c := 0; c < bpp; c++ {
			v, ok := Predict(id, cur, prev, x, y, c)
			if !ok || v != cur.at(x, y, c) {
				matched = false
				break
			}
		}
		if matched {
			return id
		}
	}
	return PredLiteral
}

// Reconstruct writes pixel (x, y)'s channels into cur from predictor id,
// adding back literal bytes for id == PredLiteral. Used on the decode
// side, where predictor ids arrive from the RLE stream instead of being
// computed from already-known pixel data.
func Reconstruct(id int, cur, prev *Plane, x, y int, literal [bpp]byte) {
	for c := 0; c < bpp; c++ {
		var v byte
		if id == PredLiteral {
			v = literal[c]
		} else {
			v, _ = Predict(id, cur, prev, x, y, c)
		}
		cur.Pix[(y*cur.W+x)*bpp+c] = v
	}
}
