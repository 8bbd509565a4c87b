package ctx

import "sort"

// Kind identifies which of the seven representations a ByteContext
// currently holds, or KindEmpty before the first observation.
type Kind uint8

const (
	KindEmpty Kind = iota
	Kind1
	Kind2
	Kind3
	Kind4
	Kind5
	Kind6
	Kind7
)

const (
	cap1 = 14
	cap2 = 64
	cap3 = 256
	cap4 = 4
	cap5 = 16
)

// ByteContext is one adaptive statistical model over byte-valued symbols,
// able to take on any of the seven representations in spec.md §3's table.
// Kinds 1 and 4 are held inline (their backing arrays are struct fields,
// not heap allocations); kinds 2, 3, 5, 6 and 7 own a single heap buffer
// each, created on promotion and released when the context moves on or is
// renewed.
type ByteContext struct {
	kind Kind
	f0   uint16 // 32 (v4) or 64 (v3 compat); handed to every kind-6 table, see hashTable.f0

	d1     uint8
	syms1  [cap1]byte
	k4     smallTable
	k4syms [cap4]byte
	k4frqs [cap4]uint16

	list []byte // kind 2 (cap 64) / kind 3 (cap 256)

	k5    *smallTable
	hash  *hashTable
	dense *denseTable
}

// New creates an empty context. f0 (32 for wire version 4, 64 for
// version 3 compatibility) is stored and handed to the kind-6 table on
// promotion; kind-6 insertion does not read it, so it does not change
// the coded intervals.
func New(f0 uint16) *ByteContext {
	return &ByteContext{f0: f0}
}

// Renew resets the context to empty, as done for every context on every
// I-frame (spec.md §3 "Lifecycle" — RenewI).
func (b *ByteContext) Renew(f0 uint16) {
	*b = ByteContext{f0: f0}
}

// Free releases heap-owned storage without resetting f0. Kept distinct
// from Renew to mirror the source's free/renew split in spec.md §4.A.
func (b *ByteContext) Free() {
	b.list = nil
	b.k5 = nil
	b.hash = nil
	b.dense = nil
	b.kind = KindEmpty
}

// Encode updates statistics for c and returns its interval. accepted is
// false only while the context is in the "no repeat seen yet" regime
// (kinds empty/1/2/3): the caller must emit c as a literal byte through
// the entropy layer's bypass channel instead of using iv.
func (b *ByteContext) Encode(c byte) (iv Interval, accepted bool) {
	switch b.kind {
	case KindEmpty:
		b.kind = Kind1
		b.d1 = 1
		b.syms1[0] = c
		return Interval{}, false

	case Kind1:
		for i := 0; i < int(b.d1); i++ {
			if b.syms1[i] == c {
				b.promoteFromKind1(c)
				return Interval{}, false
			}
		}
		if b.d1 < cap1 {
			b.syms1[b.d1] = c
			b.d1++
			return Interval{}, false
		}
		b.kind = Kind2
		b.list = append(append([]byte(nil), b.syms1[:cap1]...), c)
		return Interval{}, false

	case Kind2, Kind3:
		return b.encodeList(c)

	case Kind4:
		iv, ok := b.k4.encode(c, cap4)
		if ok {
			return iv, true
		}
		b.promote4to5()
		iv, _ = b.k5.encode(c, cap5)
		return iv, true

	case Kind5:
		iv, ok := b.k5.encode(c, cap5)
		if ok {
			return iv, true
		}
		b.promote5to6()
		b.hash.encode(c)
		return iv, true

	case Kind6:
		iv, ok := b.hash.encode(c)
		if ok {
			return iv, true
		}
		b.promote6to7()
		b.dense.encode(c)
		return iv, true

	default: // Kind7
		return b.dense.encode(c), true
	}
}

// Decode finds the symbol owning someFreq. usedModel is false exactly
// when accepted would have been false on the encode side: the caller must
// read a raw byte from the bypass channel and feed it to Update.
func (b *ByteContext) Decode(someFreq uint16) (c byte, iv Interval, usedModel bool) {
	switch b.kind {
	case KindEmpty, Kind1, Kind2, Kind3:
		return 0, Interval{}, false

	case Kind4:
		c, iv, ok := b.k4.decode(someFreq, cap4)
		if ok {
			return c, iv, true
		}
		b.promote4to5()
		c, iv, _ = b.k5.decode(someFreq, cap5)
		return c, iv, true

	case Kind5:
		c, iv, ok := b.k5.decode(someFreq, cap5)
		if ok {
			return c, iv, true
		}
		b.promote5to6()
		b.hash.encode(c)
		return c, iv, true

	case Kind6:
		c, iv, ok := b.hash.decode(someFreq)
		if ok {
			return c, iv, true
		}
		b.promote6to7()
		b.dense.encode(c)
		return c, iv, true

	default: // Kind7
		c, iv = b.dense.decode(someFreq)
		return c, iv, true
	}
}

// Update performs the stats-only side effect of Encode(c) without
// needing an interval back; used on the decode side after a bypass byte
// is read, so the model evolves identically on both sides.
func (b *ByteContext) Update(c byte) {
	b.Encode(c)
}

// encodeList implements kind-2/kind-3 "has this symbol been seen before"
// membership tracking.
func (b *ByteContext) encodeList(c byte) (Interval, bool) {
	cap := cap2
	if b.kind == Kind3 {
		cap = cap3
	}
	for _, s := range b.list {
		if s == c {
			if b.kind == Kind2 {
				b.promoteListTo6(c)
			} else {
				b.promoteListTo7(c)
			}
			return Interval{}, false
		}
	}
	if len(b.list) < cap {
		b.list = append(b.list, c)
		return Interval{}, false
	}
	// Kind 2 full at 64 distinct symbols and c is new: promote to kind 3.
	b.kind = Kind3
	b.list = append(b.list, c)
	return Interval{}, false
}

// promoteFromKind1 upgrades an empty-counters symbol list into a counted
// small table on its first repeat, seeding every known symbol at the
// uniform baseline f0 and then letting the normal smallTable.encode path
// account for this occurrence (its count becomes 2*f0, matching
// ans_contexts.h's SmallContext::create).
func (b *ByteContext) promoteFromKind1(c byte) Interval {
	sorted := append([]byte(nil), b.syms1[:b.d1]...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if len(sorted) <= cap4 {
		b.k4 = smallTable{symbols: b.k4syms[:0], freqs: b.k4frqs[:0], f0: stepCX5, totFr: 256}
		b.k4.init(sorted)
		b.kind = Kind4
		iv, _ := b.k4.encode(c, cap4)
		return iv
	}
	b.k5 = newSmallTable(make([]byte, 0, cap5), make([]uint16, 0, cap5), stepCX5)
	b.k5.init(sorted)
	b.kind = Kind5
	iv, _ := b.k5.encode(c, cap5)
	return iv
}

func (b *ByteContext) promote4to5() {
	b.k5 = newSmallTable(make([]byte, 0, cap5), make([]uint16, 0, cap5), stepCX5)
	b.k5.d = b.k4.d
	b.k5.maxpos = b.k4.maxpos
	b.k5.totFr = b.k4.totFr
	b.k5.symbols = append(b.k5.symbols, b.k4.symbols...)
	b.k5.freqs = append(b.k5.freqs, b.k4.freqs...)
	b.kind = Kind5
}

// promote5to6 rebuilds a Robin-Hood hash table from the small table's
// sorted (symbol, freq) pairs. Small-table frequencies are raw counts
// interpreted through a dynamically recomputed shift; converting to
// kind-6's absolute-scale counts bakes that shift in once, then absorbs
// the rounding drift (the "bonus" smallTable normally donates on the fly)
// into the highest-frequency slot so the exact-total invariant holds
// immediately.
func (b *ByteContext) promote5to6() {
	shift, _ := b.k5.shiftFor()
	h := newHashTable(b.f0)
	d := int(b.k5.d)
	h.symbols = append([]byte(nil), b.k5.symbols[:d]...)
	h.cnts = make([]uint16, d)
	var sum uint32
	maxi := 0
	for i := 0; i < d; i++ {
		v := uint32(b.k5.freqs[i]) << uint(shift)
		h.cnts[i] = uint16(v)
		sum += v
		if h.cnts[i] > h.cnts[maxi] {
			maxi = i
		}
	}
	h.fshift = uint8(shift)
	unmetTotal := uint32(256-d) << uint(shift)
	diff := int32(PROBScale) - int32(sum) - int32(unmetTotal)
	if d > 0 {
		nv := int32(h.cnts[maxi]) + diff
		if nv < 1 {
			nv = 1
		}
		sum = sum - uint32(h.cnts[maxi]) + uint32(nv)
		h.cnts[maxi] = uint16(nv)
	}
	h.cntsum = sum
	if d > 24 {
		h.s = 64
	}
	if sum+unmetTotal != PROBScale {
		panic(invariantf("kind-6 promotion produced cntsum=%d + unmet=%d, want exactly PROBScale=%d", sum, unmetTotal, PROBScale))
	}
	b.hash = h
	b.kind = Kind6
	b.k5 = nil
}

// promote6to7 rebuilds a dense 256-entry table from the hash table's
// absolute per-symbol frequencies; denseModel.rebuild normalizes whatever
// positive weights it is given back to an exact PROBScale total, so the
// hash table's counts can be fed in directly alongside a Laplace baseline
// of 1 for every byte that was never met. spec.md §7 classes this
// promotion as one of the two allocation points that must fail fatally
// rather than silently; the dense table always has the full 256-entry
// alphabet to land in, so the only way it doesn't is a kind-6 table that
// has outgrown the byte alphabet, which is an invariant break elsewhere.
func (b *ByteContext) promote6to7() {
	if len(b.hash.symbols) > 256 {
		panic(allocFailuref("kind-6 table holds %d distinct symbols, more than the 256-byte alphabet has room for", len(b.hash.symbols)))
	}
	m := &denseModel{
		n:       256,
		step:    1,
		cnts:    make([]uint32, 256),
		cum:     make([]uint16, 257),
		decSize: PROBScale / decBucketWidth,
		dec:     make([]uint16, PROBScale/decBucketWidth),
	}
	for i := range m.cnts {
		m.cnts[i] = 1
	}
	m.total = 256
	for i, s := range b.hash.symbols {
		w := uint32(b.hash.cnts[i])
		m.cnts[s] += w
		m.total += w
	}
	m.rebuild()
	b.dense = &denseTable{m: m}
	b.kind = Kind7
	b.hash = nil
}

func (b *ByteContext) promoteListTo6(c byte) Interval {
	sorted := append([]byte(nil), b.list...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	h := newHashTable(b.f0)
	h.symbols = sorted
	h.cnts = make([]uint16, len(sorted))
	unit := uint16(1) << h.fshift
	for i := range h.cnts {
		h.cnts[i] = unit
	}
	h.cntsum = uint32(len(sorted)) * uint32(unit)
	if len(sorted) > 24 {
		h.s = 64
	}
	b.hash = h
	b.kind = Kind6
	b.list = nil
	iv, _ := h.encode(c)
	return iv
}

func (b *ByteContext) promoteListTo7(c byte) Interval {
	b.dense = newDenseTableFromList(b.list)
	b.kind = Kind7
	b.list = nil
	return b.dense.encode(c)
}

// Kind reports the context's current representation, exposed for testing
// promotion-sequence determinism (spec.md §8).
func (b *ByteContext) Kind() Kind { return b.kind }
