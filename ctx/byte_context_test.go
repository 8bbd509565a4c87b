package ctx

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// roundTrip runs data through an encode-side context and a fresh
// decode-side context and asserts they reproduce the same bytes while
// agreeing on every intermediate Kind transition, mirroring spec.md §8's
// "encoder/decoder kind-sequence determinism" property.
func roundTrip(t *testing.T, data []byte) {
	t.Helper()
	enc := New(32)
	dec := New(32)

	var freqs []uint16
	var accepted []bool

	for _, c := range data {
		iv, ok := enc.Encode(c)
		accepted = append(accepted, ok)
		freqs = append(freqs, iv.CumFreq)
	}

	for i, want := range data {
		if !accepted[i] {
			dec.Update(want)
			continue
		}
		c, _, usedModel := dec.Decode(freqs[i])
		if !usedModel {
			t.Fatalf("byte %d: encoder accepted via model but decoder says bypass", i)
		}
		if c != want {
			t.Fatalf("byte %d: got %02x want %02x", i, c, want)
		}
	}
	if got, want := enc.Kind(), dec.Kind(); got != want {
		t.Fatalf("final kind mismatch: encoder=%v decoder=%v", got, want)
	}
}

func TestRoundTripAllKinds(t *testing.T) {
	cases := map[string][]byte{
		"empty":           {},
		"single":          {0x41},
		"kind1_no_repeat": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		"kind1_to_4":      {1, 2, 1},
		"kind1_to_2_to_6": append(distinctRun(15), 1),
		"kind1_to_2":      distinctRun(20),
		"kind2_to_6":      append(distinctRun(30), 5),
		"kind2_to_3":      distinctRun(100),
		"kind3_to_7":      append(distinctRun(200), 17),
		"heavy_repeat_a":  repeatRun('a', 500),
		"mixed":           mixedStream(2000, 1),
	}
	for name, data := range cases {
		data := data
		t.Run(name, func(t *testing.T) {
			roundTrip(t, data)
		})
	}
}

func TestKindPromotionOrder(t *testing.T) {
	b := New(32)
	if b.Kind() != KindEmpty {
		t.Fatalf("fresh context kind = %v, want KindEmpty", b.Kind())
	}
	b.Encode(1)
	if b.Kind() != Kind1 {
		t.Fatalf("after first byte kind = %v, want Kind1", b.Kind())
	}
	for i := 2; i <= cap1; i++ {
		b.Encode(byte(i))
	}
	if b.Kind() != Kind1 {
		t.Fatalf("at d1=%d kind = %v, want Kind1", cap1, b.Kind())
	}
	b.Encode(byte(cap1 + 1))
	if b.Kind() != Kind2 {
		t.Fatalf("after %d-th distinct symbol kind = %v, want Kind2", cap1+1, b.Kind())
	}
}

// TestKind6PromotesAt41Symbols checks the d<=40 ceiling directly: a
// context fed 40 distinct symbols (plus one repeat to force the
// kind-2->kind-6 promotion) must still read Kind6, and the 41st distinct
// symbol must push it to Kind7.
func TestKind6PromotesAt41Symbols(t *testing.T) {
	b := New(32)
	for _, c := range append(distinctRun(40), 0) {
		b.Encode(c)
	}
	if b.Kind() != Kind6 {
		t.Fatalf("after 40 distinct symbols kind = %v, want Kind6", b.Kind())
	}
	b.Encode(40)
	if b.Kind() != Kind7 {
		t.Fatalf("after 41st distinct symbol kind = %v, want Kind7", b.Kind())
	}
}

func TestFreqInvariants(t *testing.T) {
	b := New(32)
	data := mixedStream(5000, 7)
	for _, c := range data {
		iv, ok := b.Encode(c)
		if !ok {
			continue
		}
		if iv.Freq == 0 {
			t.Fatalf("accepted interval has zero freq for byte %#v", c)
		}
		if uint32(iv.CumFreq)+uint32(iv.Freq) > PROBScale {
			t.Fatalf("cumFreq=%d freq=%d exceeds PROBScale=%d", iv.CumFreq, iv.Freq, PROBScale)
		}
	}
}

func TestRenewResetsToEmpty(t *testing.T) {
	b := New(32)
	for _, c := range mixedStream(1000, 3) {
		b.Encode(c)
	}
	if b.Kind() == KindEmpty {
		t.Fatalf("expected non-empty kind before Renew")
	}
	b.Renew(32)
	if b.Kind() != KindEmpty {
		t.Fatalf("after Renew kind = %v, want KindEmpty", b.Kind())
	}
}

func TestFixedModelRoundTrip(t *testing.T) {
	enc := NewFixedModel(6)
	dec := NewFixedModel(6)
	syms := []int{0, 1, 2, 2, 2, 3, 5, 5, 0, 4, 1, 2}
	var freqs []uint16
	for _, s := range syms {
		iv := enc.Encode(s)
		freqs = append(freqs, iv.CumFreq)
	}
	for i, f := range freqs {
		got, _ := dec.Decode(f)
		if got != syms[i] {
			t.Fatalf("symbol %d: got %d want %d", i, got, syms[i])
		}
	}
}

func TestFixedModelRenew(t *testing.T) {
	m := NewFixedModel(4)
	before := make([]Interval, 4)
	for i := 0; i < 4; i++ {
		before[i] = m.Encode(0)
	}
	m.Renew()
	after := m.Encode(1)
	if diff := cmp.Diff(Interval{CumFreq: uint16(PROBScale / 4), Freq: uint16(PROBScale / 4)}, after); diff != "" {
		t.Fatalf("post-renew interval mismatch (-want +got):\n%s", diff)
	}
}

func distinctRun(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func repeatRun(c byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func mixedStream(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	out := make([]byte, n)
	alphabet := []byte("the quick brown fox jumps over the lazy dog 0123456789")
	for i := range out {
		if r.Intn(10) == 0 {
			out[i] = byte(r.Intn(256))
		} else {
			out[i] = alphabet[r.Intn(len(alphabet))]
		}
	}
	return out
}
