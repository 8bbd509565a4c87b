// Package config holds the tunables a frame.Codec needs, modeled on
// revid/config's plain validated-struct approach rather than env/flag
// parsing, which belongs to the excluded driver surface.
package config

import (
	"fmt"

	"github.com/scrnlab/sclc/block"
	"github.com/scrnlab/sclc/logging"
)

// Options holds everything spec.md designates as a frame.Codec's runtime
// configuration, as distinct from the wire-format constants (PROBScale,
// BlockSize, block.Size) that are never configurable.
type Options struct {
	Width, Height int

	// Motion search ranges, spec.md §4.D.
	MSRX, MSRY       int
	MSRLowX, MSRLowY int

	// LossBits is the lossy pre-quantization level, 0 (lossless) to 5.
	LossBits int

	// F0 is threaded into every ctx.ByteContext this codec creates (see
	// ctx.New): 32 for wire version 4, 64 for version-3 compatibility
	// (spec.md §4.A).
	F0 uint16

	// Logger receives the structured diagnostics config.Watcher logs; the
	// codec itself is not given a logger. Required; there is no
	// package-level fallback.
	Logger logging.Logger
}

// Default returns the spec's documented defaults for a width x height
// stream: the full ±256 motion search range, ±8 low-range search,
// lossless coding, and the version-4 insertion weight.
func Default(width, height int, logger logging.Logger) Options {
	return Options{
		Width: width, Height: height,
		MSRX: 256, MSRY: 256,
		MSRLowX: 8, MSRLowY: 8,
		LossBits: 0,
		F0:       32,
		Logger:   logger,
	}
}

// Validate checks every field for a value the rest of the module can act
// on without further bounds checking.
func (o Options) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("config: width and height must be positive, got %dx%d", o.Width, o.Height)
	}
	if o.LossBits < 0 || o.LossBits > 5 {
		return fmt.Errorf("config: loss bits must be in [0,5], got %d", o.LossBits)
	}
	if o.F0 != 32 && o.F0 != 64 {
		return fmt.Errorf("config: f0 must be 32 (version 4) or 64 (version-3 compat), got %d", o.F0)
	}
	if o.MSRX <= 0 || o.MSRY <= 0 || o.MSRLowX <= 0 || o.MSRLowY <= 0 {
		return fmt.Errorf("config: motion search ranges must be positive")
	}
	if o.Logger == nil {
		return fmt.Errorf("config: Logger is required")
	}
	return nil
}

// BlockParams projects the motion search fields into the block package's
// own Params type.
func (o Options) BlockParams() block.Params {
	return block.Params{MSRX: o.MSRX, MSRY: o.MSRY, MSRLowX: o.MSRLowX, MSRLowY: o.MSRLowY}
}
