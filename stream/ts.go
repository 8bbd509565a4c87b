// Package stream wraps a sequence of frame.Codec.EncodeFrame outputs as
// MPEG-TS PES payloads with PTS timestamps, giving the core an optional
// transport framing so many frames can be concatenated into one seekable
// file without a bespoke container format.
//
// Grounded on the teacher's container/mts/pes package, which performs the
// same PES packetization over github.com/Comcast/gots types for H.264/AAC
// access units; this module has no existing stream ID of its own, so it
// claims the MPEG-2 "private stream 1" ID (0xBD) conventionally used for
// non-standard payloads.
package stream

import (
	"fmt"

	"github.com/Comcast/gots"
)

// PrivateStream1 is the PES stream ID this module's frames are carried
// under (ISO/IEC 13818-1 private_stream_1).
const PrivateStream1 = 0xBD

// maxPacketSize mirrors pes.MaxPesSize: PES packet length is a 16-bit
// field, so one encoded frame larger than this must be split by the
// caller before calling Packet (not attempted here — spec.md's frames are
// always well under this bound for any reasonable resolution).
const maxPacketSize = 64 * 1 << 10

// Packet builds one PES packet carrying payload (one frame.Codec output)
// timestamped at pts (90kHz clock units, as PES/MPEG-TS require).
//
// Only the fields this module needs are set: no ESCR, ES rate, DSM trick
// mode, additional copy info, or CRC, matching the "TODO: add DSMTM, ACI,
// CRC, Ext fields" scope the teacher's own Packet type leaves unfinished.
func Packet(payload []byte, pts uint64) ([]byte, error) {
	if len(payload) > maxPacketSize {
		return nil, fmt.Errorf("stream: frame payload of %d bytes exceeds PES packet limit of %d", len(payload), maxPacketSize)
	}

	const headerLen = 5 // PTS-only optional header: 5 bytes
	length := headerLen + len(payload)

	buf := make([]byte, 0, 9+headerLen+len(payload))
	buf = append(buf,
		0x00, 0x00, 0x01,
		PrivateStream1,
		byte(length>>8), byte(length),
		0x2<<6, // no scrambling, no priority/DAI/copyright/original
		0x2<<6, // PDI=2 (PTS only), no ESCR/ESR/DSMTM/ACI/CRC/ext
		headerLen,
	)

	ptsField := make([]byte, 5)
	gots.InsertPTS(ptsField, pts)
	buf = append(buf, ptsField...)
	buf = append(buf, payload...)
	return buf, nil
}

// ParsePacket reverses Packet: given one PES packet built by Packet, it
// returns the frame payload and PTS. gots exposes no inverse of
// InsertPTS, so this decodes the standard 5-byte PTS field directly
// (ITU-T Rec. H.222.0 §2.4.3.6).
func ParsePacket(buf []byte) (payload []byte, pts uint64, err error) {
	const minLen = 9 + 5
	if len(buf) < minLen {
		return nil, 0, fmt.Errorf("stream: packet too short: %d bytes", len(buf))
	}
	if buf[0] != 0x00 || buf[1] != 0x00 || buf[2] != 0x01 {
		return nil, 0, fmt.Errorf("stream: missing PES start code")
	}
	if buf[3] != PrivateStream1 {
		return nil, 0, fmt.Errorf("stream: unexpected stream ID 0x%02x", buf[3])
	}
	headerLen := int(buf[8])
	ptsStart := 9
	if headerLen < 5 || ptsStart+5 > len(buf) {
		return nil, 0, fmt.Errorf("stream: malformed PES header length %d", headerLen)
	}
	p := buf[ptsStart : ptsStart+5]
	pts = uint64(p[0]&0x0e) << 29
	pts |= uint64(p[1]) << 22
	pts |= uint64(p[2]&0xfe) << 14
	pts |= uint64(p[3]) << 7
	pts |= uint64(p[4]&0xfe) >> 1

	dataStart := ptsStart + headerLen
	if dataStart > len(buf) {
		return nil, 0, fmt.Errorf("stream: header length %d overruns packet", headerLen)
	}
	return buf[dataStart:], pts, nil
}
