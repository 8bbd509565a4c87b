package pixel

import (
	"github.com/scrnlab/sclc/ctx"
	"github.com/scrnlab/sclc/rans"
)

// MaxRunLen is the RLE span cap from spec.md §4.C: "bounded runLength ≤
// 255".
const MaxRunLen = 255

// NumRunLens is the fixed-size model arity for encoded run lengths
// (stored as runLen-1, so the alphabet covers 1..256 even though spans
// never reach 256; kept a power-of-two-friendly 256 to match the other
// fixed-size alphabets in spec.md §4.A).
const NumRunLens = 256

// Span is one run of pixels sharing a predictor id, as produced by
// scanning a row-band or a block's bounding rectangle in raster order.
type Span struct {
	PredID  int
	RunLen  int
	Literal [][bpp]byte // one triple per pixel in the run, only when PredID == PredLiteral
}

// BuildSpans groups a raster-order sequence of classified predictor ids
// into RLE spans capped at MaxRunLen, carrying along the literal pixel
// values the caller already has on hand for PredLiteral runs.
func BuildSpans(ids []int, pixelAt func(i int) [bpp]byte) []Span {
	var spans []Span
	i := 0
	for i < len(ids) {
		id := ids[i]
		j := i + 1
		for j < len(ids) && ids[j] == id && j-i < MaxRunLen {
			j++
		}
		sp := Span{PredID: id, RunLen: j - i}
		if id == PredLiteral {
			sp.Literal = make([][bpp]byte, j-i)
			for k := i; k < j; k++ {
				sp.Literal[k-i] = pixelAt(k)
			}
		}
		spans = append(spans, sp)
		i = j
	}
	return spans
}

// Coder owns the adaptive models a span stream is entropy-coded through:
// a fixed-size model over predictor ids, a fixed-size model over encoded
// run lengths, and one adaptive byte context per channel for literal
// pixel values. frame.Codec shares one Coder across an I-frame and every
// P-frame block after it, and renews it only on the next I-frame, the
// unit spec.md §3 renews contexts at.
type Coder struct {
	PredModel *ctx.FixedModel
	RunModel  *ctx.FixedModel
	Lit       [bpp]*ctx.ByteContext
}

// NewCoder creates a span coder with fresh models. f0 is threaded down
// to every literal byte context (see ctx.New).
func NewCoder(f0 uint16) *Coder {
	c := &Coder{
		PredModel: ctx.NewFixedModel(NumPredictors),
		RunModel:  ctx.NewFixedModel(NumRunLens),
	}
	for i := range c.Lit {
		c.Lit[i] = ctx.New(f0)
	}
	return c
}

// Renew resets every model the coder owns, as done for every I-frame
// (spec.md §3 "Lifecycle").
func (c *Coder) Renew(f0 uint16) {
	c.PredModel.Renew()
	c.RunModel.Renew()
	for i := range c.Lit {
		c.Lit[i].Renew(f0)
	}
}

// EncodeSpans entropy-codes spans, passing each interval to put —
// literal bytes that a context bypasses are represented as Freq==0
// intervals carrying the raw byte in CumFreq, exactly as rans.Decoder
// expects.
func (c *Coder) EncodeSpans(spans []Span, put func(rans.Interval)) {
	for _, sp := range spans {
		idIv := c.PredModel.Encode(sp.PredID)
		put(rans.Interval{CumFreq: idIv.CumFreq, Freq: idIv.Freq})

		runIv := c.RunModel.Encode(sp.RunLen - 1)
		put(rans.Interval{CumFreq: runIv.CumFreq, Freq: runIv.Freq})

		if sp.PredID != PredLiteral {
			continue
		}
		for _, px := range sp.Literal {
			for ch := 0; ch < bpp; ch++ {
				iv, ok := c.Lit[ch].Encode(px[ch])
				if !ok {
					put(rans.Interval{CumFreq: uint16(px[ch]), Freq: 0})
					continue
				}
				put(rans.Interval{CumFreq: iv.CumFreq, Freq: iv.Freq})
			}
		}
	}
}

// SpanReader decodes spans back out of a block decoder using the same
// model sequence EncodeSpans produced.
type SpanReader struct {
	c *Coder
	d *rans.BlockDecoder
}

// NewSpanReader pairs a coder with the decoder it reads intervals from.
func NewSpanReader(c *Coder, d *rans.BlockDecoder) *SpanReader {
	return &SpanReader{c: c, d: d}
}

// ReadSpan decodes one (predictorId, runLength, literals) span.
func (r *SpanReader) ReadSpan() Span {
	idSym, idIv := r.c.PredModel.Decode(r.d.SomeFreq())
	r.d.Advance(idIv.CumFreq, idIv.Freq)

	runSym, runIv := r.c.RunModel.Decode(r.d.SomeFreq())
	r.d.Advance(runIv.CumFreq, runIv.Freq)

	sp := Span{PredID: idSym, RunLen: runSym + 1}
	if idSym != PredLiteral {
		return sp
	}
	sp.Literal = make([][bpp]byte, sp.RunLen)
	for i := range sp.Literal {
		var px [bpp]byte
		for ch := 0; ch < bpp; ch++ {
			c, iv, usedModel := r.c.Lit[ch].Decode(r.d.SomeFreq())
			if !usedModel {
				c = r.d.ReadByte()
				r.c.Lit[ch].Update(c)
			} else {
				r.d.Advance(iv.CumFreq, iv.Freq)
			}
			px[ch] = c
		}
		sp.Literal[i] = px
	}
	return sp
}
