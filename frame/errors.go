package frame

import (
	"github.com/pkg/errors"

	"github.com/scrnlab/sclc/ctx"
)

// Error classes from spec.md §7's taxonomy. Sentinel values so callers
// can errors.Is against a class while the wrapped message carries detail.
var (
	ErrFormat         = errors.New("frame: format or version error")
	ErrInputExhausted = errors.New("frame: decoder advanced past supplied input")
	ErrInvariant      = errors.New("frame: invariant violation")
	ErrAlloc          = errors.New("frame: allocation failure")
)

func errFormat(format string, args ...interface{}) error {
	return errors.WithStack(errors.Wrapf(ErrFormat, format, args...))
}

func errExhausted(format string, args ...interface{}) error {
	return errors.WithStack(errors.Wrapf(ErrInputExhausted, format, args...))
}

func errInvariant(format string, args ...interface{}) error {
	return errors.WithStack(errors.Wrapf(ErrInvariant, format, args...))
}

// recoveredErr converts a panic value raised by ctx's internal invariant
// and allocation-failure assertions (spec.md §7), or by this package's
// own errInvariant calls (a worker squad's sticky fatal flag surfacing
// through encodeI/encodeP), into a typed error of the matching class, so
// EncodeFrame/DecodeFrame can return it normally instead of crashing the
// caller. Any other panic value is re-raised: this boundary only claims
// the specific failure modes it knows how to classify.
func recoveredErr(r interface{}) error {
	if err, ok := r.(error); ok {
		switch {
		case errors.Is(err, ctx.ErrAlloc), errors.Is(err, ctx.ErrInvariant):
			return errors.Wrap(err, "frame: recovered from adaptive model panic")
		case errors.Is(err, ErrAlloc), errors.Is(err, ErrInvariant):
			return errors.Wrap(err, "frame: recovered from worker squad panic")
		}
	}
	panic(r)
}

// boundedReader wraps a byte slice with an explicit end pointer, checked
// on every read (spec.md §7 "Input-exhausted": "the entropy layer must
// check its input pointer against a stored end pointer on every byte
// refill").
type boundedReader struct {
	buf []byte
	pos int
}

func newBoundedReader(buf []byte) *boundedReader { return &boundedReader{buf: buf} }

func (r *boundedReader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errExhausted("read past end of %d-byte input at offset %d", len(r.buf), r.pos)
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *boundedReader) readN(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, errExhausted("read of %d bytes past end of %d-byte input at offset %d", n, len(r.buf), r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}
