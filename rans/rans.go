// Package rans implements a byte-oriented range-Asymmetric-Numeral-System
// entropy coder: encoding a sequence of (cumFreq, freq) intervals in
// reverse order into a compact byte buffer, and decoding that buffer back
// into the same sequence of intervals forward.
//
// Grounded on original_source/ransmt.h's RansMTCoder::writeBlock and the
// ryg_rans reference formulas it calls through rans_byte.h (not present in
// the retrieved pack; reconstructed from the standard byte-renormalized
// rANS arithmetic the header's comments describe).
package rans

import "github.com/scrnlab/sclc/ctx"

// ProbBits and ProbScale mirror ctx.PROBBits/PROBScale; duplicated here as
// the wire-fixed constants spec.md §6 calls out explicitly ("Changing any
// of these breaks the wire").
const ProbBits = ctx.PROBBits
const ProbScale = ctx.PROBScale

// byteL is the normalization lower bound RANS_BYTE_L = 2^23.
const byteL = uint32(1) << 23

// State is the 32-bit rANS coder state, reset to byteL at the start of
// every block.
type State uint32

// Init returns the initial encoder/decoder state for a new block.
func Init() State { return State(byteL) }

// Interval is a local alias kept distinct from ctx.Interval so this
// package has no compile-time dependency on ctx's internal layout beyond
// the two fields it actually needs.
type Interval struct {
	CumFreq uint16
	Freq    uint16
}

// EncPut folds one interval into the state and appends its
// renormalization bytes to buf, least significant first; EncodeBlock
// reverses the whole buffer once the block is flushed. freq must be
// nonzero; EncodeBlock writes a bypass interval's literal byte into the
// buffer itself.
func (s State) EncPut(buf []byte, start, freq uint16) (State, []byte) {
	xMax := ((byteL >> ProbBits) << 8) * uint32(freq)
	x := uint32(s)
	for x >= xMax {
		buf = append(buf, byte(x))
		x >>= 8
	}
	x = ((x / uint32(freq)) << ProbBits) + (x % uint32(freq)) + uint32(start)
	return State(x), buf
}

// EncFlush appends the final state to buf most significant byte first,
// completing a block; after EncodeBlock's reversal the block starts with
// the state's 4 little-endian bytes, as NewDecoder reads them.
func (s State) EncFlush(buf []byte) []byte {
	x := uint32(s)
	buf = append(buf, byte(x>>24), byte(x>>16), byte(x>>8), byte(x))
	return buf
}

// DecGet returns the 12-bit slot the current state points into; the
// caller looks this up against whichever context model owns the next
// symbol to recover (start, freq, symbol), then calls DecAdvance.
func (s State) DecGet() uint16 {
	return uint16(uint32(s) & (ProbScale - 1))
}

// DecAdvance folds (start, freq) out of the state and renormalizes by
// consuming bytes forward from r, returning the new state and read
// cursor.
func (s State) DecAdvance(r []byte, pos int, start, freq uint16) (State, int) {
	x := uint32(s)
	x = uint32(freq)*(x>>ProbBits) + (x & (ProbScale - 1)) - uint32(start)
	for x < byteL {
		x = (x << 8) | uint32(r[pos])
		pos++
	}
	return State(x), pos
}

// Encoder accumulates intervals for a single block and reverse-encodes
// them into a byte buffer. Unlike the source's in-place tmpbuf-from-the-
// back trick, this builds the forward-order renormalization bytes into a
// plain slice and reverses the whole thing once in EncodeBlock — clearer in Go
// and the cost is linear in the same data the loop already touches.
type Encoder struct {
	tail []byte // renormalization bytes, emitted oldest-first during the reverse pass
}

// NewEncoder returns an empty encoder; EncodeBlock fills its tail with
// one block's intervals, given in the reverse of the order they were
// produced.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Reset clears the encoder for reuse on the next block.
func (e *Encoder) Reset() {
	e.tail = e.tail[:0]
}

// EncodeBlock reverse-encodes ivs (in the order given — callers pass
// their interval slice already reversed, i.e. last-produced first) into a
// freshly allocated byte slice: the wire representation of one
// independent rANS block.
func EncodeBlock(ivs []Interval) []byte {
	e := NewEncoder()
	s := Init()
	for _, iv := range ivs {
		if iv.Freq == 0 {
			e.tail = append(e.tail, byte(iv.CumFreq))
			continue
		}
		s, e.tail = s.EncPut(e.tail, iv.CumFreq, iv.Freq)
	}
	e.tail = s.EncFlush(e.tail)
	out := make([]byte, len(e.tail))
	for i, b := range e.tail {
		out[len(out)-1-i] = b
	}
	return out
}

// Decoder reads intervals back out of an encoded block in original
// order.
type Decoder struct {
	buf []byte
	pos int
	s   State
}

// NewDecoder initializes decoding of an encoded block: the first 4 bytes
// are the flushed state, consumed here exactly as RansDecInit does.
func NewDecoder(buf []byte) *Decoder {
	s := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	return &Decoder{buf: buf, pos: 4, s: State(s)}
}

// SomeFreq returns the 12-bit value the caller feeds to a context's
// Decode to learn which symbol is next and at what (start, freq).
func (d *Decoder) SomeFreq() uint16 { return d.s.DecGet() }

// Advance folds (start, freq) out of the state once the caller has
// resolved the symbol via SomeFreq.
func (d *Decoder) Advance(start, freq uint16) {
	d.s, d.pos = d.s.DecAdvance(d.buf, d.pos, start, freq)
}

// ReadByte consumes one literal byte from the stream pointer, for bypass
// intervals (freq == 0) which never touch the coder state.
func (d *Decoder) ReadByte() byte {
	b := d.buf[d.pos]
	d.pos++
	return b
}

// BytesConsumed reports how much of buf has been read so far, letting a
// caller locate the next independent block immediately after this one.
func (d *Decoder) BytesConsumed() int { return d.pos }
