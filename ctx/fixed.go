package ctx

// stepFX is the adaptivity step for fixed-size models: block types, run
// lengths, pixel-predictor ids, motion coordinates, and block indices.
const stepFX = 16

// FixedModel is the adaptive model for an alphabet of known, fixed arity
// N (e.g. 5 I-frame predictors, 6 P-frame predictors, 256 run lengths,
// 512 block indices). Unlike ByteContext it never changes representation;
// it always uses the dense cumulative-frequency table described in
// spec.md §4.A "Fixed-size model".
type FixedModel struct {
	m *denseModel
}

// NewFixedModel creates a model over symbols [0, n) with a uniform
// starting distribution.
func NewFixedModel(n int) *FixedModel {
	return &FixedModel{m: newDenseModel(n, stepFX)}
}

// Encode returns sym's interval and records the occurrence. sym must be
// in [0, n).
func (f *FixedModel) Encode(sym int) Interval {
	return f.m.encode(sym)
}

// Decode finds the symbol owning someFreq and records the occurrence.
func (f *FixedModel) Decode(someFreq uint16) (sym int, iv Interval) {
	return f.m.decode(someFreq)
}

// Renew resets the model to its initial uniform distribution, as done for
// every fixed-size model on every I-frame.
func (f *FixedModel) Renew() {
	f.m.renew()
}

// N returns the model's alphabet size.
func (f *FixedModel) N() int { return f.m.n }
