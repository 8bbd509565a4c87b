package ctx

// denseTable is the kind-7 representation: the terminal, dense 256-entry
// byte model. Every byte has a slot from the start; there is no further
// promotion.
type denseTable struct {
	m *denseModel
}

// newDenseTableFromList builds a kind-7 table from a kind-3 symbol list
// (every symbol seen exactly once so far). The caller must follow up with
// encode/decode of the triggering symbol (the repeat that caused this
// promotion) through the normal path, exactly as the kind-1->kind-4/5
// promotion seeds a uniform baseline and lets the ordinary encode/decode
// call account for the triggering occurrence.
func newDenseTableFromList(seen []byte) *denseTable {
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
	for _, s := range seen {
		m.cnts[s]++
		m.total++
	}
	m.rebuild()
	return &denseTable{m: m}
}

func (d *denseTable) encode(c byte) Interval { return d.m.encode(int(c)) }

func (d *denseTable) decode(someFreq uint16) (byte, Interval) {
	sym, iv := d.m.decode(someFreq)
	return byte(sym), iv
}
