package ctx

// denseModel is the shared dense-table representation used by kind-7
// (byte alphabet, N=256) and the fixed-size model (N = any known arity:
// block types, run lengths, predictor ids, motion coordinates, block
// indices). Both keep a per-symbol count, a cumulative-frequency array
// rebuilt from those counts whenever the running total would overflow the
// probability scale, and a small decode-lookup table mapping the top bits
// of a query frequency to a starting symbol for an O(1)-ish forward scan.
//
// Grounded on spec.md §4.A's "Kind-7 (dense 256)" and "Fixed-size model"
// paragraphs.
type denseModel struct {
	n       int
	step    uint32
	cnts    []uint32
	cum     []uint16 // len n+1, cum[n] == PROBScale
	total   uint32   // sum(cnts)
	decSize int
	dec     []uint16 // len decSize, dec[b] = starting symbol for bucket b
}

// decBucketWidth is the width in probability-scale units of one
// decode-lookup bucket, giving PROBScale/decBucketWidth == 32 buckets.
const decBucketWidth = 128

func newDenseModel(n int, step uint32) *denseModel {
	m := &denseModel{
		n:       n,
		step:    step,
		cnts:    make([]uint32, n),
		cum:     make([]uint16, n+1),
		decSize: PROBScale / decBucketWidth,
		dec:     make([]uint16, PROBScale/decBucketWidth),
	}
	for i := range m.cnts {
		m.cnts[i] = 1
	}
	m.total = uint32(n)
	m.rebuild()
	return m
}

// renew resets the model to a uniform distribution, as done on every
// I-frame for fixed-size models (spec.md §3 "Lifecycle").
func (m *denseModel) renew() {
	for i := range m.cnts {
		m.cnts[i] = 1
	}
	m.total = uint32(m.n)
	m.rebuild()
}

func (m *denseModel) interval(sym int) Interval {
	return Interval{CumFreq: m.cum[sym], Freq: m.cum[sym+1] - m.cum[sym]}
}

// encode returns sym's interval and bumps its count.
func (m *denseModel) encode(sym int) Interval {
	iv := m.interval(sym)
	m.bump(sym)
	return iv
}

// decode finds the symbol owning someFreq.
func (m *denseModel) decode(someFreq uint16) (sym int, iv Interval) {
	b := int(someFreq) / decBucketWidth
	sym = int(m.dec[b])
	for sym < m.n-1 && m.cum[sym+1] <= someFreq {
		sym++
	}
	iv = m.interval(sym)
	m.bump(sym)
	return sym, iv
}

func (m *denseModel) bump(sym int) {
	m.cnts[sym] += m.step
	m.total += m.step
	if m.total > PROBScale {
		m.rescale()
	}
}

// rescale halves every count (floor 1) and rebuilds the cumulative array.
func (m *denseModel) rescale() {
	var sum uint32
	for i := range m.cnts {
		m.cnts[i] -= m.cnts[i] >> 1
		if m.cnts[i] < 1 {
			m.cnts[i] = 1
		}
		sum += m.cnts[i]
	}
	m.total = sum
	m.rebuild()
}

// rebuild recomputes the cumulative-frequency array from cnts, normalized
// to sum exactly PROBScale (every symbol keeps freq>=1), then refreshes
// the decode-lookup table.
func (m *denseModel) rebuild() {
	n := m.n
	widths := make([]uint32, n)
	var sum uint32
	for i, c := range m.cnts {
		w := uint32(uint64(c) * PROBScale / uint64(m.total))
		if w < 1 {
			w = 1
		}
		widths[i] = w
		sum += w
	}
	// Distribute rounding drift onto the largest-count symbol so the
	// cumulative array lands on PROBScale exactly.
	maxi := 0
	for i, c := range m.cnts {
		if c > m.cnts[maxi] {
			maxi = i
		}
	}
	diff := int32(PROBScale) - int32(sum)
	nv := int32(widths[maxi]) + diff
	if nv < 1 {
		nv = 1
	}
	widths[maxi] = uint32(nv)

	cum := uint16(0)
	for i, w := range widths {
		m.cum[i] = cum
		cum += uint16(w)
	}
	m.cum[n] = PROBScale

	m.buildDecTable()
}

func (m *denseModel) buildDecTable() {
	sym := 0
	for b := 0; b < m.decSize; b++ {
		target := uint16(b * decBucketWidth)
		for sym < m.n-1 && m.cum[sym+1] <= target {
			sym++
		}
		m.dec[b] = uint16(sym)
	}
}
