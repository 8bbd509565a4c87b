package rans

import (
	"math/rand"
	"testing"

	"github.com/scrnlab/sclc/ctx"
)

// TestEncodeDecodeBlockRoundTrip drives a handful of ByteContexts through
// real interval sequences, encodes the resulting intervals into one rANS
// block, and checks the decode side recovers the same bytes and bypass
// literals in order — spec.md §8's "rANS pipeline invariant".
func TestEncodeDecodeBlockRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	data := make([]byte, 50000)
	alphabet := []byte("abcdefghij")
	for i := range data {
		if r.Intn(20) == 0 {
			data[i] = byte(r.Intn(256))
		} else {
			data[i] = alphabet[r.Intn(len(alphabet))]
		}
	}

	enc := ctx.New(32)
	var ivs []Interval
	var bypassMask []bool
	for _, c := range data {
		iv, ok := enc.Encode(c)
		ivs = append(ivs, Interval{CumFreq: iv.CumFreq, Freq: iv.Freq})
		bypassMask = append(bypassMask, !ok)
		if !ok {
			ivs[len(ivs)-1] = Interval{CumFreq: uint16(c), Freq: 0}
		}
	}

	block := EncodeBlock(reverseOf(ivs))

	dec := ctx.New(32)
	d := NewDecoder(block)
	for i, want := range data {
		if bypassMask[i] {
			got := d.ReadByte()
			dec.Update(got)
			if got != want {
				t.Fatalf("bypass byte %d: got %02x want %02x", i, got, want)
			}
			continue
		}
		sf := d.SomeFreq()
		got, iv, usedModel := dec.Decode(sf)
		if !usedModel {
			t.Fatalf("symbol %d: decoder unexpectedly bypassed", i)
		}
		d.Advance(iv.CumFreq, iv.Freq)
		if got != want {
			t.Fatalf("symbol %d: got %02x want %02x", i, got, want)
		}
	}
}

func reverseOf(ivs []Interval) []Interval {
	out := make([]Interval, len(ivs))
	for i, v := range ivs {
		out[len(ivs)-1-i] = v
	}
	return out
}

func TestBlockPipelineMatchesInlineForSmallInput(t *testing.T) {
	ivs := make([]Interval, 100)
	for i := range ivs {
		ivs[i] = Interval{CumFreq: uint16(i % 4096), Freq: 1}
	}
	inline := EncodeAll(ivs)

	p := NewBlockPipeline()
	for _, iv := range ivs {
		p.Put(iv)
	}
	piped := p.Finish()

	if len(inline) != len(piped) {
		t.Fatalf("length mismatch: inline=%d piped=%d", len(inline), len(piped))
	}
	for i := range inline {
		if inline[i] != piped[i] {
			t.Fatalf("byte %d differs: inline=%02x piped=%02x", i, inline[i], piped[i])
		}
	}
}

func TestBlockPipelineSpansMultipleBlocks(t *testing.T) {
	n := BlockSize*2 + 500
	ivs := make([]Interval, n)
	for i := range ivs {
		ivs[i] = Interval{CumFreq: uint16(i % 4096), Freq: 1}
	}

	p := NewBlockPipeline()
	for _, iv := range ivs {
		p.Put(iv)
	}
	out := p.Finish()
	if len(out) == 0 {
		t.Fatal("expected non-empty output for multi-block input")
	}

	bd := NewBlockDecoder(out)
	for i := range ivs {
		sf := bd.SomeFreq()
		_ = sf
		bd.Advance(uint16(i%4096), 1)
	}
}
