package frame

import (
	"runtime"

	"github.com/scrnlab/sclc/block"
	"github.com/scrnlab/sclc/ctx"
	"github.com/scrnlab/sclc/pixel"
	"github.com/scrnlab/sclc/rans"
	"github.com/scrnlab/sclc/squad"
)

// numBlockTypes is the block-type alphabet: Unchanged, FullBlock,
// Partial, FullMotion, PartMotion (block.Type* constants).
const numBlockTypes = 5

// Codec holds every piece of mutable state one encode/decode session
// needs: the worker squad (sized to NumCPU and created by Init, not on
// the first frame, spec.md §5), the
// previous frame for P-frame prediction, and every adaptive model,
// persisting across frames until RenewI resets them on the next I-frame.
type Codec struct {
	w, h   int
	grid   block.Grid
	params block.Params
	f0     uint16

	sq   *squad.Squad
	prev *pixel.Plane

	haveFlat bool
	flatRGB  [3]byte

	lit       *pixel.Coder
	blockType *ctx.FixedModel
	blockRun  *ctx.FixedModel
	idxLo     *ctx.ByteContext
	idxHi     *ctx.ByteContext
	boundsX1  *ctx.FixedModel
	boundsY1  *ctx.FixedModel
	boundsX2  *ctx.FixedModel
	boundsY2  *ctx.FixedModel
	mvSame    *ctx.FixedModel
	mvX       *ctx.FixedModel
	mvY       *ctx.FixedModel
}

// Init creates a codec for a w x h frame stream. f0 (32 for wire
// version 4, 64 for version-3 compat) is handed to every byte context;
// see ctx.New for what kind 6 does with it.
func Init(w, h int, p block.Params, f0 uint16) *Codec {
	c := &Codec{
		w: w, h: h,
		grid:   block.NewGrid(w, h),
		params: p,
		f0:     f0,
		sq:     squad.New(runtime.NumCPU()),
	}
	c.allocModels()
	return c
}

func (c *Codec) allocModels() {
	c.lit = pixel.NewCoder(c.f0)
	c.blockType = ctx.NewFixedModel(numBlockTypes)
	c.blockRun = ctx.NewFixedModel(256)
	c.idxLo = ctx.New(c.f0)
	c.idxHi = ctx.New(c.f0)
	c.boundsX1 = ctx.NewFixedModel(block.Size)
	c.boundsY1 = ctx.NewFixedModel(block.Size)
	c.boundsX2 = ctx.NewFixedModel(block.Size + 1)
	c.boundsY2 = ctx.NewFixedModel(block.Size + 1)
	c.mvSame = ctx.NewFixedModel(2)
	c.mvX = ctx.NewFixedModel(2*c.params.MSRX + 1)
	c.mvY = ctx.NewFixedModel(2*c.params.MSRY + 1)
}

// RenewI resets every adaptive model to its initial distribution, as done
// before every I-frame (spec.md §3 "Lifecycle").
func (c *Codec) RenewI() {
	c.lit.Renew(c.f0)
	c.blockType.Renew()
	c.blockRun.Renew()
	c.idxLo.Renew(c.f0)
	c.idxHi.Renew(c.f0)
	c.boundsX1.Renew()
	c.boundsY1.Renew()
	c.boundsX2.Renew()
	c.boundsY2.Renew()
	c.mvSame.Renew()
	c.mvX.Renew()
	c.mvY.Renew()
}

// Deinit stops the worker squad. The caller may call Init again to
// resume, per spec.md §7's Deinit/Init recovery pattern.
func (c *Codec) Deinit() {
	c.sq.Stop()
}

// applyLossMask clears the low lossBits of every byte and sets the
// correction bit, in place, matching spec.md §4.F step 2. lossBits==0 is
// a no-op.
func applyLossMask(pix []byte, lossBits int) {
	if lossBits == 0 {
		return
	}
	mask := byte(0xff << uint(lossBits))
	corr := byte(1) << uint(lossBits-1)
	for i := range pix {
		pix[i] = (pix[i] & mask) | corr
	}
}

func flatColor(p *pixel.Plane) (rgb [3]byte, isFlat bool) {
	if len(p.Pix) == 0 {
		return rgb, false
	}
	rgb[0], rgb[1], rgb[2] = p.Pix[0], p.Pix[1], p.Pix[2]
	for i := 0; i+2 < len(p.Pix); i += 3 {
		if p.Pix[i] != rgb[0] || p.Pix[i+1] != rgb[1] || p.Pix[i+2] != rgb[2] {
			return rgb, false
		}
	}
	return rgb, true
}

// EncodeFrame compresses src (a w*h*3-byte 24bpp frame) into the wire
// format. requestIFrame forces an I-frame regardless of frame number;
// fn==0 (no previous frame yet) always encodes as I. lossBits in [0,5]
// applies the lossy pre-quantization of spec.md §4.F step 2.
//
// An adaptive model's growth/promotion invariants (spec.md §7 "Allocation
// failure") are checked deep inside ctx and panic on violation; that
// panic is recovered here and surfaced as the documented fatal error
// instead of crashing the process, the same boundary DecodeFrame uses.
func (c *Codec) EncodeFrame(src []byte, fn int, requestIFrame bool, lossBits int) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, recoveredErr(r)
		}
	}()

	cur := &pixel.Plane{Pix: append([]byte(nil), src...), W: c.w, H: c.h}
	applyLossMask(cur.Pix, lossBits)

	if rgb, isFlat := flatColor(cur); isFlat {
		flatOut := make([]byte, 0, 4)
		if !c.haveFlat || c.haveFlat && rgb != c.flatRGB {
			c.RenewI()
		}
		c.haveFlat = true
		c.flatRGB = rgb
		flatOut = append(flatOut, flatIMarker(), rgb[0], rgb[1], rgb[2])
		c.prev = cur
		return flatOut, nil
	}
	c.haveFlat = false

	isI := fn == 0 || requestIFrame
	if isI {
		return c.encodeI(cur), nil
	}
	return c.encodeP(cur), nil
}

func (c *Codec) encodeI(cur *pixel.Plane) []byte {
	c.RenewI()
	spans := pixel.ClassifyImageParallel(c.sq, cur, nil, true)
	if err := c.sq.HasFatal(); err != nil {
		panic(errInvariant("classify worker reported fatal error: %v", err))
	}

	pipeline := rans.NewBlockPipeline()
	put := func(iv rans.Interval) { pipeline.Put(iv) }
	c.lit.EncodeSpans(spans, put)

	body := pipeline.Finish()
	out := make([]byte, 0, 1+len(body))
	out = append(out, fullIMarker())
	out = append(out, body...)
	c.prev = cur
	return out
}

func (c *Codec) encodeP(cur *pixel.Plane) []byte {
	if c.prev != nil && bytesEqual(cur.Pix, c.prev.Pix) {
		c.prev = cur
		return []byte{markerIdenticalP}
	}

	infos := block.DecisionPass(c.sq, cur, c.prev, c.grid, c.params)
	if err := c.sq.HasFatal(); err != nil {
		panic(errInvariant("decision worker reported fatal error: %v", err))
	}

	lo, hi := c.grid.NumBlocks(), -1
	idx := 0
	for by := 0; by < c.grid.BH; by++ {
		for bx := 0; bx < c.grid.BW; bx++ {
			if infos[by][bx].Type != block.TypeUnchanged {
				if idx < lo {
					lo = idx
				}
				if idx > hi {
					hi = idx
				}
			}
			idx++
		}
	}
	if hi < 0 {
		// Decision pass found no changes even though the raw bytes
		// differ (can happen if loss masking collapses differences);
		// fall back to the identical-frame marker.
		c.prev = cur
		return []byte{markerIdenticalP}
	}

	pipeline := rans.NewBlockPipeline()
	put := func(iv rans.Interval) { pipeline.Put(iv) }

	idxIv := func(m *ctx.ByteContext, v byte) {
		iv, ok := m.Encode(v)
		if !ok {
			put(rans.Interval{CumFreq: uint16(v), Freq: 0})
			return
		}
		put(rans.Interval{CumFreq: iv.CumFreq, Freq: iv.Freq})
	}
	idxIv(c.idxLo, byte(lo))
	idxIv(c.idxHi, byte(lo>>8))
	idxIv(c.idxLo, byte(hi))
	idxIv(c.idxHi, byte(hi>>8))

	// Block-type RLE across [lo, hi].
	types := make([]int, hi-lo+1)
	for i := range types {
		by, bx := (lo+i)/c.grid.BW, (lo+i)%c.grid.BW
		types[i] = infos[by][bx].Type
	}
	typeSpans := pixel.BuildSpans(types, func(int) [3]byte { return [3]byte{} })
	for _, sp := range typeSpans {
		iv := c.blockType.Encode(sp.PredID)
		put(rans.Interval{CumFreq: iv.CumFreq, Freq: iv.Freq})
		riv := c.blockRun.Encode(sp.RunLen - 1)
		put(rans.Interval{CumFreq: riv.CumFreq, Freq: riv.Freq})
	}

	// view is the frame as the decoder holds it while decoding block i:
	// prev with every changed block's rectangle up to and including i
	// written in, so no pixel is predicted from a block decoded later.
	view := &pixel.Plane{Pix: append([]byte(nil), c.prev.Pix...), W: cur.W, H: cur.H}
	lastMVX, lastMVY := 0, 0
	for i := lo; i <= hi; i++ {
		by, bx := i/c.grid.BW, i%c.grid.BW
		info := infos[by][bx]
		if info.Type == block.TypeUnchanged {
			continue
		}

		x1iv := c.boundsX1.Encode(info.Bounds.X1)
		put(rans.Interval{CumFreq: x1iv.CumFreq, Freq: x1iv.Freq})
		y1iv := c.boundsY1.Encode(info.Bounds.Y1)
		put(rans.Interval{CumFreq: y1iv.CumFreq, Freq: y1iv.Freq})
		x2iv := c.boundsX2.Encode(info.Bounds.X2)
		put(rans.Interval{CumFreq: x2iv.CumFreq, Freq: x2iv.Freq})
		y2iv := c.boundsY2.Encode(info.Bounds.Y2)
		put(rans.Interval{CumFreq: y2iv.CumFreq, Freq: y2iv.Freq})

		x0, y0, _, _ := c.grid.BlockBounds(bx, by)
		for y := y0 + info.Bounds.Y1; y < y0+info.Bounds.Y2; y++ {
			s, e := (y*cur.W+x0+info.Bounds.X1)*3, (y*cur.W+x0+info.Bounds.X2)*3
			copy(view.Pix[s:e], cur.Pix[s:e])
		}

		if info.Type == block.TypeFullMotion || info.Type == block.TypePartMotion {
			same := 0
			if info.MVX == lastMVX && info.MVY == lastMVY {
				same = 1
			}
			sameIv := c.mvSame.Encode(same)
			put(rans.Interval{CumFreq: sameIv.CumFreq, Freq: sameIv.Freq})
			if same == 0 {
				xIv := c.mvX.Encode(info.MVX + c.params.MSRX)
				put(rans.Interval{CumFreq: xIv.CumFreq, Freq: xIv.Freq})
				yIv := c.mvY.Encode(info.MVY + c.params.MSRY)
				put(rans.Interval{CumFreq: yIv.CumFreq, Freq: yIv.Freq})
			}
			lastMVX, lastMVY = info.MVX, info.MVY
			continue
		}

		// No motion found: emit a pixel RLE over the block's bounding
		// rectangle.
		w := info.Bounds.X2 - info.Bounds.X1
		var ids []int
		for y := info.Bounds.Y1; y < info.Bounds.Y2; y++ {
			for x := info.Bounds.X1; x < info.Bounds.X2; x++ {
				ids = append(ids, pixel.Classify(view, c.prev, x0+x, y0+y, false))
			}
		}
		pixelAt := func(i int) [3]byte {
			row := info.Bounds.Y1 + i/w
			col := info.Bounds.X1 + i%w
			var px [3]byte
			for ch := 0; ch < 3; ch++ {
				px[ch] = cur.Pix[((y0+row)*cur.W+(x0+col))*3+ch]
			}
			return px
		}
		blockSpans := pixel.BuildSpans(ids, pixelAt)
		c.lit.EncodeSpans(blockSpans, put)
	}

	body := pipeline.Finish()
	out := make([]byte, 0, 1+len(body))
	out = append(out, markerGeneralP)
	out = append(out, body...)
	c.prev = cur
	return out
}

// DecodeFrame reverses EncodeFrame: given one wire-format frame, it
// returns the reconstructed w*h*3-byte pixel buffer, updating c's
// reference frame and adaptive models exactly as encoding would have.
//
// Like EncodeFrame, an adaptive model's growth/promotion invariant panic
// is recovered here and surfaced as the documented fatal error.
func (c *Codec) DecodeFrame(buf []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, recoveredErr(r)
		}
	}()

	typ, err := InferType(buf)
	if err != nil {
		return nil, err
	}
	switch typ {
	case TypeIdenticalP:
		if c.prev == nil {
			return nil, errInvariant("identical-P frame arrived before any reference frame")
		}
		return append([]byte(nil), c.prev.Pix...), nil

	case TypeFlatI:
		if len(buf) < 4 {
			return nil, errExhausted("flat-I frame missing RGB payload")
		}
		rgb := [3]byte{buf[1], buf[2], buf[3]}
		if !c.haveFlat || rgb != c.flatRGB {
			c.RenewI()
		}
		c.haveFlat = true
		c.flatRGB = rgb
		pix := make([]byte, c.w*c.h*3)
		for i := 0; i < len(pix); i += 3 {
			pix[i], pix[i+1], pix[i+2] = rgb[0], rgb[1], rgb[2]
		}
		c.prev = &pixel.Plane{Pix: pix, W: c.w, H: c.h}
		return pix, nil

	case TypeFullI:
		c.haveFlat = false
		return c.decodeI(buf[1:])

	case TypeGeneralP:
		c.haveFlat = false
		return c.decodeP(buf[1:])

	default:
		return nil, errInvariant("unreachable frame type %d", typ)
	}
}

func (c *Codec) decodeI(body []byte) ([]byte, error) {
	c.RenewI()
	cur := &pixel.Plane{Pix: make([]byte, c.w*c.h*3), W: c.w, H: c.h}
	dec := rans.NewBlockDecoder(body)
	reader := pixel.NewSpanReader(c.lit, dec)

	n := c.w * c.h
	for i := 0; i < n; {
		sp := reader.ReadSpan()
		for k := 0; k < sp.RunLen; k++ {
			y, x := i/c.w, i%c.w
			var lit [3]byte
			if sp.PredID == pixel.PredLiteral {
				lit = sp.Literal[k]
			}
			pixel.Reconstruct(sp.PredID, cur, nil, x, y, lit)
			i++
		}
	}
	c.prev = cur
	return cur.Pix, nil
}

// readCtxByte mirrors pixel.SpanReader.ReadSpan's bypass handling for a
// lone byte coded through m outside of a span (the block-index fields).
func readCtxByte(m *ctx.ByteContext, dec *rans.BlockDecoder) byte {
	sym, iv, usedModel := m.Decode(dec.SomeFreq())
	if !usedModel {
		sym = dec.ReadByte()
		m.Update(sym)
		return sym
	}
	dec.Advance(iv.CumFreq, iv.Freq)
	return sym
}

func (c *Codec) decodeP(body []byte) ([]byte, error) {
	if c.prev == nil {
		return nil, errInvariant("general-P frame arrived before any reference frame")
	}
	cur := &pixel.Plane{Pix: append([]byte(nil), c.prev.Pix...), W: c.w, H: c.h}
	dec := rans.NewBlockDecoder(body)

	loLo := readCtxByte(c.idxLo, dec)
	loHi := readCtxByte(c.idxHi, dec)
	hiLo := readCtxByte(c.idxLo, dec)
	hiHi := readCtxByte(c.idxHi, dec)
	lo := int(loHi)<<8 | int(loLo)
	hi := int(hiHi)<<8 | int(hiLo)

	types := make([]int, hi-lo+1)
	for i := 0; i < len(types); {
		sym, iv := c.blockType.Decode(dec.SomeFreq())
		dec.Advance(iv.CumFreq, iv.Freq)
		runSym, runIv := c.blockRun.Decode(dec.SomeFreq())
		dec.Advance(runIv.CumFreq, runIv.Freq)
		for k := 0; k < runSym+1 && i < len(types); k++ {
			types[i] = sym
			i++
		}
	}

	lastMVX, lastMVY := 0, 0
	reader := pixel.NewSpanReader(c.lit, dec)
	for idx := lo; idx <= hi; idx++ {
		by, bx := idx/c.grid.BW, idx%c.grid.BW
		typ := types[idx-lo]
		if typ == block.TypeUnchanged {
			continue
		}

		x1sym, x1iv := c.boundsX1.Decode(dec.SomeFreq())
		dec.Advance(x1iv.CumFreq, x1iv.Freq)
		y1sym, y1iv := c.boundsY1.Decode(dec.SomeFreq())
		dec.Advance(y1iv.CumFreq, y1iv.Freq)
		x2sym, x2iv := c.boundsX2.Decode(dec.SomeFreq())
		dec.Advance(x2iv.CumFreq, x2iv.Freq)
		y2sym, y2iv := c.boundsY2.Decode(dec.SomeFreq())
		dec.Advance(y2iv.CumFreq, y2iv.Freq)
		r := block.Rect{X1: x1sym, Y1: y1sym, X2: x2sym, Y2: y2sym}

		x0, y0, _, _ := c.grid.BlockBounds(bx, by)

		if typ == block.TypeFullMotion || typ == block.TypePartMotion {
			sameSym, sameIv := c.mvSame.Decode(dec.SomeFreq())
			dec.Advance(sameIv.CumFreq, sameIv.Freq)
			mvx, mvy := lastMVX, lastMVY
			if sameSym == 0 {
				xSym, xIv := c.mvX.Decode(dec.SomeFreq())
				dec.Advance(xIv.CumFreq, xIv.Freq)
				ySym, yIv := c.mvY.Decode(dec.SomeFreq())
				dec.Advance(yIv.CumFreq, yIv.Freq)
				mvx, mvy = xSym-c.params.MSRX, ySym-c.params.MSRY
			}
			lastMVX, lastMVY = mvx, mvy
			for y := r.Y1; y < r.Y2; y++ {
				for x := r.X1; x < r.X2; x++ {
					cy, cx := y0+y, x0+x
					py, px := cy+mvy, cx+mvx
					for ch := 0; ch < 3; ch++ {
						cur.Pix[(cy*cur.W+cx)*3+ch] = c.prev.Pix[(py*c.prev.W+px)*3+ch]
					}
				}
			}
			continue
		}

		w := r.X2 - r.X1
		total := w * (r.Y2 - r.Y1)
		for got := 0; got < total; {
			sp := reader.ReadSpan()
			for k := 0; k < sp.RunLen; k++ {
				row := r.Y1 + got/w
				col := r.X1 + got%w
				y, x := y0+row, x0+col
				var lit [3]byte
				if sp.PredID == pixel.PredLiteral {
					lit = sp.Literal[k]
				}
				pixel.Reconstruct(sp.PredID, cur, c.prev, x, y, lit)
				got++
			}
		}
	}
	c.prev = cur
	return cur.Pix, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
