package frame

import (
	"math/rand"
	"testing"

	"github.com/scrnlab/sclc/block"
)

func syntheticFrame(w, h int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	pix := make([]byte, w*h*3)
	// A smooth gradient with a patch of noise gives predictors real work
	// without making every block a no-match literal dump.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := byte((x*3 + y*5) % 256)
			i := (y*w + x) * 3
			pix[i], pix[i+1], pix[i+2] = v, v+1, v+2
		}
	}
	for i := 0; i < len(pix)/10; i++ {
		pix[r.Intn(len(pix))] = byte(r.Intn(256))
	}
	return pix
}

func flatFrame(w, h int, rgb [3]byte) []byte {
	pix := make([]byte, w*h*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i], pix[i+1], pix[i+2] = rgb[0], rgb[1], rgb[2]
	}
	return pix
}

func TestEncodeDecodeIFrameRoundTrip(t *testing.T) {
	w, h := 48, 32
	enc := Init(w, h, block.DefaultParams(), 32)
	defer enc.Deinit()
	dec := Init(w, h, block.DefaultParams(), 32)
	defer dec.Deinit()

	src := syntheticFrame(w, h, 1)
	wire, err := enc.EncodeFrame(src, 0, false, 0)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	typ, err := InferType(wire)
	if err != nil {
		t.Fatalf("InferType: %v", err)
	}
	if typ != TypeFullI {
		t.Fatalf("Type = %v, want TypeFullI", typ)
	}

	got, err := dec.DecodeFrame(wire)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if !bytesEqual(got, src) {
		t.Fatal("decoded I-frame does not match source")
	}
}

func TestEncodeDecodePFrameSequence(t *testing.T) {
	w, h := 64, 48
	enc := Init(w, h, block.DefaultParams(), 32)
	defer enc.Deinit()
	dec := Init(w, h, block.DefaultParams(), 32)
	defer dec.Deinit()

	frame0 := syntheticFrame(w, h, 2)
	wire0, err := enc.EncodeFrame(frame0, 0, false, 0)
	if err != nil {
		t.Fatalf("EncodeFrame frame0: %v", err)
	}
	got0, err := dec.DecodeFrame(wire0)
	if err != nil {
		t.Fatalf("DecodeFrame frame0: %v", err)
	}
	if !bytesEqual(got0, frame0) {
		t.Fatal("decoded frame 0 mismatch")
	}

	// frame1: a localized change plus a pure translation patch, so the
	// decision pass exercises unchanged, partial and motion block types.
	frame1 := append([]byte(nil), frame0...)
	for y := 10; y < 20; y++ {
		for x := 5; x < 15; x++ {
			i := (y*w + x) * 3
			frame1[i], frame1[i+1], frame1[i+2] = 200, 100, 50
		}
	}
	for y := 0; y < h-4; y++ {
		for x := 0; x < w-4; x++ {
			si := (y*w + x) * 3
			di := ((y+2)*w + (x + 2)) * 3
			if y >= 30 && y < 46 && x >= 30 && x < 46 {
				frame1[di], frame1[di+1], frame1[di+2] = frame0[si], frame0[si+1], frame0[si+2]
			}
		}
	}

	wire1, err := enc.EncodeFrame(frame1, 1, false, 0)
	if err != nil {
		t.Fatalf("EncodeFrame frame1: %v", err)
	}
	typ, err := InferType(wire1)
	if err != nil {
		t.Fatalf("InferType: %v", err)
	}
	if typ != TypeGeneralP {
		t.Fatalf("Type = %v, want TypeGeneralP", typ)
	}
	got1, err := dec.DecodeFrame(wire1)
	if err != nil {
		t.Fatalf("DecodeFrame frame1: %v", err)
	}
	if !bytesEqual(got1, frame1) {
		t.Fatal("decoded frame 1 mismatch")
	}

	// frame2 identical to frame1: must round-trip through the
	// identical-P marker.
	wire2, err := enc.EncodeFrame(frame1, 2, false, 0)
	if err != nil {
		t.Fatalf("EncodeFrame frame2: %v", err)
	}
	if len(wire2) != 1 || wire2[0] != markerIdenticalP {
		t.Fatalf("wire2 = %v, want single identical-P marker byte", wire2)
	}
	got2, err := dec.DecodeFrame(wire2)
	if err != nil {
		t.Fatalf("DecodeFrame frame2: %v", err)
	}
	if !bytesEqual(got2, frame1) {
		t.Fatal("decoded identical frame mismatch")
	}
}

func TestEncodeDecodeFlatFrame(t *testing.T) {
	w, h := 32, 32
	enc := Init(w, h, block.DefaultParams(), 32)
	defer enc.Deinit()
	dec := Init(w, h, block.DefaultParams(), 32)
	defer dec.Deinit()

	rgb := [3]byte{10, 20, 30}
	src := flatFrame(w, h, rgb)
	wire, err := enc.EncodeFrame(src, 0, false, 0)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if len(wire) != 4 {
		t.Fatalf("flat wire length = %d, want 4", len(wire))
	}
	typ, err := InferType(wire)
	if err != nil {
		t.Fatalf("InferType: %v", err)
	}
	if typ != TypeFlatI {
		t.Fatalf("Type = %v, want TypeFlatI", typ)
	}
	got, err := dec.DecodeFrame(wire)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if !bytesEqual(got, src) {
		t.Fatal("decoded flat frame mismatch")
	}
}

func TestApplyLossMaskClearsLowBitsAndSetsCorrection(t *testing.T) {
	pix := []byte{0xff, 0x01, 0x10, 0x00}
	applyLossMask(pix, 3)
	mask := byte(0xf8)
	corr := byte(0x04)
	for _, b := range pix {
		if b&^mask != corr {
			t.Fatalf("byte %#x: low bits = %#x, want correction bit %#x", b, b&^mask, corr)
		}
	}
}

func TestApplyLossMaskNoopAtZero(t *testing.T) {
	pix := []byte{0xab, 0x01, 0xff}
	want := append([]byte(nil), pix...)
	applyLossMask(pix, 0)
	if !bytesEqual(pix, want) {
		t.Fatal("lossBits==0 must not modify pixels")
	}
}

func TestEncodeFrameWithLossIsIdempotentOnDecode(t *testing.T) {
	w, h := 32, 24
	enc := Init(w, h, block.DefaultParams(), 32)
	defer enc.Deinit()
	dec := Init(w, h, block.DefaultParams(), 32)
	defer dec.Deinit()

	src := syntheticFrame(w, h, 3)
	lossBits := 2
	wire, err := enc.EncodeFrame(src, 0, false, lossBits)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	got, err := dec.DecodeFrame(wire)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}

	want := append([]byte(nil), src...)
	applyLossMask(want, lossBits)
	if !bytesEqual(got, want) {
		t.Fatal("decoded lossy frame does not match the masked source")
	}
}
