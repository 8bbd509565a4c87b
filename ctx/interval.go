// Package ctx implements the adaptive statistical context models used by
// the entropy coder: seven polymorphic representations for byte-valued
// symbols (Ctx1..Ctx7 in the codec this package is modeled on) plus a
// simpler fixed-arity model for block types, run lengths, predictor ids,
// motion coordinates and block indices.
package ctx

import "fmt"

// PROBBits is the number of bits in the shared probability scale. Every
// interval produced by a context lives in [0, PROBScale).
const PROBBits = 12

// PROBScale is 1<<PROBBits. It is fixed in the wire format: changing it
// breaks compatibility with any stream encoded under the old scale.
const PROBScale = 1 << PROBBits

// Interval is the half-open range [CumFreq, CumFreq+Freq) assigned to a
// symbol within [0, PROBScale). Freq == 0 is the bypass convention: CumFreq
// then carries a raw literal byte that the entropy layer must emit without
// compression.
type Interval struct {
	CumFreq uint16
	Freq    uint16
}

// Bypass reports whether iv is a literal-byte marker rather than a coded
// interval.
func (iv Interval) Bypass() bool { return iv.Freq == 0 }

// Bypass builds the literal-byte interval for b.
func Bypass(b byte) Interval { return Interval{CumFreq: uint16(b), Freq: 0} }

// checkInterval validates the invariant every stored or returned interval
// must satisfy: 0 <= cumFreq, freq >= 1 (unless it's a bypass marker), and
// cumFreq+freq <= PROBScale. A violation means a bug in the model, not bad
// input, so callers treat it as fatal.
func checkInterval(iv Interval) error {
	if iv.Freq == 0 {
		return nil
	}
	if uint32(iv.CumFreq)+uint32(iv.Freq) > PROBScale {
		return fmt.Errorf("ctx: invariant violation: cumFreq=%d freq=%d exceeds PROBScale=%d", iv.CumFreq, iv.Freq, PROBScale)
	}
	return nil
}
