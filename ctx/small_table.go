package ctx

// smallTable is the shared representation for kind-4 (d<=4, inline) and
// kind-5 (d<=16, heap) contexts: a sorted symbol list with per-symbol
// frequencies, and an implicit frequency of 1 for every one of the other
// 256-d bytes never seen. Grounded on ans_contexts.h's SmallContext<S>.
//
// Kind-4's table is backed by arrays embedded directly in ByteContext so
// promoting kind1->kind4 never allocates; kind-5 is backed by a heap
// allocation sized 16.
type smallTable struct {
	d, maxpos uint8
	symbols   []byte
	freqs     []uint16
	f0        uint16 // STEP_CX5, applied on every hit or insertion
	totFr     uint16 // sum of freqs[0:d] + (256-d), the implicit total scale
}

const stepCX5 = 50

func newSmallTable(symbols []byte, freqs []uint16, f0 uint16) *smallTable {
	return &smallTable{symbols: symbols[:0], freqs: freqs[:0], f0: f0, totFr: 256}
}

// init builds the uniform baseline table from a sorted, deduplicated list of
// symbols carried over from a kind-1 promotion: every symbol starts at f0,
// matching the "as if already observed once" baseline the small table
// assumes for anything it remembers at all.
func (t *smallTable) init(sorted []byte) {
	d := len(sorted)
	t.d = uint8(d)
	t.symbols = t.symbols[:0]
	t.freqs = t.freqs[:0]
	t.symbols = append(t.symbols, sorted...)
	for range sorted {
		t.freqs = append(t.freqs, t.f0)
	}
	t.maxpos = 0
	t.totFr = uint16(256-d) + uint16(d)*t.f0
}

// shiftFor returns the normalization shift and the unused-code-space bonus
// donated to the current max-frequency slot, exactly mirroring
// SmallContext::encode/decode's "bonus" computation.
func (t *smallTable) shiftFor() (shift int, bonus uint16) {
	tot := uint32(t.totFr)
	for tot <= PROBScale/2 {
		tot <<= 1
		shift++
	}
	bonus = uint16((PROBScale - tot) >> uint(shift))
	return shift, bonus
}

// full reports whether the table has no room for another distinct symbol.
func (t *smallTable) full(cap int) bool { return int(t.d) >= cap }

// encode looks up c, updates stats, and returns its interval. ok is false
// only when the table is full and c is a new symbol — the caller must
// promote to the next kind and retry there.
func (t *smallTable) encode(c byte, cap int) (iv Interval, ok bool) {
	shift, bonus := t.shiftFor()
	maxFreq := t.freqs[t.maxpos]
	t.freqs[t.maxpos] += bonus

	cumFr, lastSymb := 0, 0
	for pos := 0; pos < int(t.d); pos++ {
		s := t.symbols[pos]
		if s == c {
			cumFr += int(c) - lastSymb
			fr := t.freqs[pos]
			iv = Interval{CumFreq: uint16(cumFr << uint(shift)), Freq: uint16(int(fr) << uint(shift))}
			t.freqs[t.maxpos] = maxFreq
			t.freqs[pos] += t.f0
			t.totFr += t.f0
			if pos != int(t.maxpos) && t.freqs[pos] > t.freqs[t.maxpos] {
				t.maxpos = uint8(pos)
			}
			if uint32(t.totFr)+uint32(t.f0) > PROBScale {
				t.rescale()
			}
			return iv, true
		}
		if c < s {
			cumFr += int(c) - lastSymb
			iv = Interval{CumFreq: uint16(cumFr << uint(shift)), Freq: uint16(1 << uint(shift))}
			t.freqs[t.maxpos] = maxFreq
			if t.full(cap) {
				return iv, false
			}
			t.insertAt(pos, c)
			return iv, true
		}
		cumFr += int(s) - lastSymb + int(t.freqs[pos])
		lastSymb = int(s) + 1
	}
	cumFr += int(c) - lastSymb
	iv = Interval{CumFreq: uint16(cumFr << uint(shift)), Freq: uint16(1 << uint(shift))}
	t.freqs[t.maxpos] = maxFreq
	if t.full(cap) {
		return iv, false
	}
	t.insertAt(int(t.d), c)
	return iv, true
}

// decode finds the symbol owning someFreq. ok is false only when the
// symbol is new and the table is full.
func (t *smallTable) decode(someFreq uint16, cap int) (c byte, iv Interval, ok bool) {
	shift, bonus := t.shiftFor()
	sf := int(someFreq) >> uint(shift)
	maxFreq := t.freqs[t.maxpos]
	t.freqs[t.maxpos] += bonus

	cumFr, lastSymb := 0, 0
	for pos := 0; pos < int(t.d); pos++ {
		s := t.symbols[pos]
		startFr := cumFr + int(s) - lastSymb
		if sf < startFr {
			c = byte(sf - cumFr + lastSymb)
			cumFr = sf
			iv = Interval{CumFreq: uint16(cumFr << uint(shift)), Freq: uint16(1 << uint(shift))}
			t.freqs[t.maxpos] = maxFreq
			if t.full(cap) {
				return c, iv, false
			}
			t.insertAt(pos, c)
			return c, iv, true
		}
		fr := int(t.freqs[pos])
		if startFr+fr > sf {
			c = s
			cumFr += int(c) - lastSymb
			iv = Interval{CumFreq: uint16(cumFr << uint(shift)), Freq: uint16(fr << uint(shift))}
			t.freqs[t.maxpos] = maxFreq
			t.freqs[pos] += t.f0
			t.totFr += t.f0
			if pos != int(t.maxpos) && t.freqs[pos] > t.freqs[t.maxpos] {
				t.maxpos = uint8(pos)
			}
			if uint32(t.totFr)+uint32(t.f0) > PROBScale {
				t.rescale()
			}
			return c, iv, true
		}
		cumFr += int(s) - lastSymb + fr
		lastSymb = int(s) + 1
	}
	c = byte(lastSymb + sf - cumFr)
	iv = Interval{CumFreq: uint16(sf << uint(shift)), Freq: uint16(1 << uint(shift))}
	t.freqs[t.maxpos] = maxFreq
	if t.full(cap) {
		return c, iv, false
	}
	t.insertAt(int(t.d), c)
	return c, iv, true
}

// insertAt inserts symbol c (not yet present) at sorted position pos,
// priced at f0, and rescales if that pushes totFr past the scale.
func (t *smallTable) insertAt(pos int, c byte) {
	t.symbols = append(t.symbols, 0)
	t.freqs = append(t.freqs, 0)
	copy(t.symbols[pos+1:], t.symbols[pos:len(t.symbols)-1])
	copy(t.freqs[pos+1:], t.freqs[pos:len(t.freqs)-1])
	t.symbols[pos] = c
	t.freqs[pos] = t.f0
	t.d++
	if int(t.maxpos) >= pos {
		t.maxpos++
	}
	t.totFr += t.f0
	if uint32(t.totFr)+uint32(t.f0) > PROBScale {
		t.rescale()
	}
}

// rescale halves every stored frequency (keeping a floor of 1) and
// recomputes the implicit total, exactly mirroring SmallContext::rescale.
func (t *smallTable) rescale() {
	s := 256 - int(t.d)
	for i := 0; i < int(t.d); i++ {
		t.freqs[i] -= t.freqs[i] >> 1
		s += int(t.freqs[i])
	}
	t.totFr = uint16(s)
}
