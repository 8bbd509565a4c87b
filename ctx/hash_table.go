package ctx

// hashTable is the kind-6 representation: 15..64 distinct symbols, each
// with a live count; no new symbol is inserted once it holds 40. Conceptually a Robin-Hood open-addressed table keyed
// by symbol (as in ans_contexts.h's Cx6) with nominal size S (32, growing
// to 64 once d reaches 24); this port keeps entries in a slice sorted by
// symbol value instead of literal open addressing, since what callers and
// the wire format observe is the (cumFreq, freq) pair a scan produces, not
// the physical slot layout. The d>=24-at-32 / full-at-64 thresholds are
// preserved as explicit capacity bookkeeping so the promotion schedule in
// spec.md still holds.
type hashTable struct {
	s       int // nominal capacity: 32 or 64
	fshift  uint8
	f0      uint16 // stored as given (32 or 64); insert does not read it: a new symbol enters at 1<<fshift
	symbols []byte // ascending by value, len == d
	cnts    []uint16
	cntsum  uint32 // sum(cnts); total scale = cntsum + (256-d)<<fshift
}

const stepCX6 = 25

// initHashShift is the fshift that makes every one of the 256 possible
// bytes carry an equal implicit frequency of 1<<fshift summing to
// PROBScale: 256 << 4 == 4096.
const initHashShift = 4

// maxHashSymbols is kind 6's distinct-symbol ceiling (spec.md's d<=40
// invariant). It is independent of s, the nominal physical table size
// (32, growing to 64): a context can outgrow its hash table's probe
// capacity long before it outgrows the representation's symbol budget,
// but never the reverse.
const maxHashSymbols = 40

func newHashTable(f0 uint16) *hashTable {
	return &hashTable{s: 32, fshift: initHashShift, f0: f0}
}

// full reports whether the table has no room for another distinct symbol:
// either its distinct-symbol budget (40) or its current nominal physical
// size, whichever binds first.
func (t *hashTable) full() bool {
	return len(t.symbols) >= maxHashSymbols || len(t.symbols) >= t.s
}

// grow promotes the nominal capacity from 32 to 64 once occupancy passes
// the spec's threshold. Returns false (allocation failure) only if called
// when already at 64.
func (t *hashTable) grow() bool {
	if t.s >= 64 {
		return false
	}
	t.s = 64
	return true
}

// maybeGrow promotes the table from 32 to 64 slots once occupancy passes
// 24 (spec.md §3's kind-6 sizing schedule). grow only fails when the
// table is already at its maximum physical size, which maxHashSymbols=40
// guarantees never coincides with this call; a failure here means that
// invariant has been broken elsewhere, so it is surfaced as the fatal
// allocation error spec.md §7 requires rather than silently skipped.
func (t *hashTable) maybeGrow() {
	if t.s == 32 && len(t.symbols) >= 24 {
		if !t.grow() {
			panic(allocFailuref("hash table growth from 32 to 64 slots failed at %d symbols", len(t.symbols)))
		}
	}
}

// encode looks up c, returning its interval and updating stats. ok is
// false when c is new and the table has no room (caller must promote to
// kind 7).
func (t *hashTable) encode(c byte) (iv Interval, ok bool) {
	unmet := uint16(1) << t.fshift
	cum, processed := 0, 0
	for pos, s := range t.symbols {
		gap := int(s) - processed
		if processed <= int(c) && int(c) < int(s) {
			iv = Interval{CumFreq: uint16(cum + (int(c)-processed)*int(unmet)), Freq: unmet}
			return iv, t.insert(c)
		}
		cum += gap * int(unmet)
		if s == c {
			fr := t.cnts[pos]
			iv = Interval{CumFreq: uint16(cum), Freq: fr}
			t.hit(pos)
			return iv, true
		}
		cum += int(t.cnts[pos])
		processed = int(s) + 1
	}
	iv = Interval{CumFreq: uint16(cum + (int(c)-processed)*int(unmet)), Freq: unmet}
	return iv, t.insert(c)
}

// decode finds the symbol owning someFreq.
func (t *hashTable) decode(someFreq uint16) (c byte, iv Interval, ok bool) {
	unmet := uint16(1) << t.fshift
	sf := int(someFreq)
	cum, processed := 0, 0
	for pos, s := range t.symbols {
		gapEnd := cum + (int(s)-processed)*int(unmet)
		if sf < gapEnd {
			c = byte(processed + (sf-cum)/int(unmet))
			start := cum + (int(c)-processed)*int(unmet)
			iv = Interval{CumFreq: uint16(start), Freq: unmet}
			return c, iv, t.insert(c)
		}
		cum = gapEnd
		fr := int(t.cnts[pos])
		if sf < cum+fr {
			c = s
			iv = Interval{CumFreq: uint16(cum), Freq: uint16(fr)}
			t.hit(pos)
			return c, iv, true
		}
		cum += fr
		processed = int(s) + 1
	}
	c = byte(processed + (sf-cum)/int(unmet))
	start := cum + (int(c)-processed)*int(unmet)
	iv = Interval{CumFreq: uint16(start), Freq: unmet}
	return c, iv, t.insert(c)
}

func (t *hashTable) hit(pos int) {
	step := uint16(stepCX6) << t.fshift
	t.cnts[pos] += step
	t.cntsum += uint32(step)
	t.maybeRescale()
}

// insert places a brand-new symbol at its count-exact unmet frequency,
// preserving the total-scale invariant (see hash_table design note in
// DESIGN.md). Returns false if the table is full.
func (t *hashTable) insert(c byte) bool {
	if t.full() {
		return false
	}
	pos := 0
	for pos < len(t.symbols) && t.symbols[pos] < c {
		pos++
	}
	t.symbols = append(t.symbols, 0)
	t.cnts = append(t.cnts, 0)
	copy(t.symbols[pos+1:], t.symbols[pos:len(t.symbols)-1])
	copy(t.cnts[pos+1:], t.cnts[pos:len(t.cnts)-1])
	t.symbols[pos] = c
	cnt := uint16(1) << t.fshift
	t.cnts[pos] = cnt
	t.cntsum += uint32(cnt)
	t.maybeGrow()
	return true
}

func (t *hashTable) maybeRescale() {
	unmetTotal := uint32(256-len(t.symbols)) << t.fshift
	if t.cntsum+unmetTotal <= PROBScale {
		return
	}
	t.rescale()
}

// rescale halves every count (with a floor), decrements fshift, then
// renormalizes so cntsum + (256-d)<<fshift lands on PROBScale exactly —
// the original's "recompute cumulative frequencies by scanning 0..255"
// step, done here by distributing rounding error onto the largest slot
// instead of rebuilding a 256-entry cumulative array this representation
// doesn't keep.
func (t *hashTable) rescale() {
	if t.fshift > 0 {
		t.fshift--
	}
	floor := uint16(1)
	if t.fshift > 0 {
		floor = 1 << (t.fshift - 1)
	}
	var sum uint32
	maxi := -1
	for i := range t.cnts {
		t.cnts[i] -= t.cnts[i] >> 1
		if t.cnts[i] < floor {
			t.cnts[i] = floor
		}
		sum += uint32(t.cnts[i])
		if maxi < 0 || t.cnts[i] > t.cnts[maxi] {
			maxi = i
		}
	}
	unmetTotal := uint32(256-len(t.symbols)) << t.fshift
	target := int32(PROBScale) - int32(unmetTotal)
	diff := target - int32(sum)
	if maxi >= 0 {
		nv := int32(t.cnts[maxi]) + diff
		if nv < 1 {
			nv = 1
		}
		sum = sum - uint32(t.cnts[maxi]) + uint32(nv)
		t.cnts[maxi] = uint16(nv)
	}
	t.cntsum = sum
}
