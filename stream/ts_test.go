package stream

import (
	"bytes"
	"testing"
)

func TestPacketRoundTrip(t *testing.T) {
	payload := []byte{0x32, 0x01, 0x02, 0x03, 0xff, 0x00}
	pts := uint64(123456789) & ((1 << 33) - 1)

	pkt, err := Packet(payload, pts)
	if err != nil {
		t.Fatalf("Packet: %v", err)
	}

	gotPayload, gotPTS, err := ParsePacket(pkt)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("payload = %v, want %v", gotPayload, payload)
	}
	if gotPTS != pts {
		t.Fatalf("pts = %d, want %d", gotPTS, pts)
	}
}

func TestPacketRejectsOversizePayload(t *testing.T) {
	payload := make([]byte, maxPacketSize+1)
	if _, err := Packet(payload, 0); err == nil {
		t.Fatal("expected an error for an oversize payload")
	}
}

func TestParsePacketRejectsBadStreamID(t *testing.T) {
	pkt, err := Packet([]byte{1, 2, 3}, 0)
	if err != nil {
		t.Fatalf("Packet: %v", err)
	}
	pkt[3] = 0xE0 // a video stream ID, not PrivateStream1
	if _, _, err := ParsePacket(pkt); err == nil {
		t.Fatal("expected an error for an unexpected stream ID")
	}
}
