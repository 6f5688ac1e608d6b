package wire

import (
	"bytes"
	"testing"
)

func TestPacketRoundTrip(t *testing.T) {
	hello := HelloPayload{Flags: FeatureTimestampMicros, PinCount: PinCount, BoardIDSize: BoardIDSize, AnalogCount: AnalogCount}

	var buf bytes.Buffer
	if err := WritePacket(&buf, MsgHello, FeatureTimestampMicros, 7, hello.Marshal()); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}

	pkt, err := ReadPacket(&buf)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if pkt.Header.Type != uint16(MsgHello) || pkt.Header.Sequence != 7 {
		t.Fatalf("unexpected header: %+v", pkt.Header)
	}
	got, err := UnmarshalHello(pkt.Payload)
	if err != nil {
		t.Fatalf("UnmarshalHello: %v", err)
	}
	if got != hello {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, hello)
	}
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	h := Header{Magic: 0xDEADBEEF, VersionMajor: VersionMajor, VersionMinor: VersionMinor}
	_ = WriteHeader(&buf, h)
	if _, err := ReadHeader(&buf); err != ErrBadMagic {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestReadHeaderRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	h := Header{Magic: ProtocolMagic, VersionMajor: VersionMajor, VersionMinor: VersionMinor, PayloadSize: MaxPayloadBytes + 1}
	_ = WriteHeader(&buf, h)
	if _, err := ReadHeader(&buf); err != ErrOversizedPayload {
		t.Fatalf("expected ErrOversizedPayload, got %v", err)
	}
}

func TestStepPayloadRoundTrip(t *testing.T) {
	var pins [PinCount]uint8
	pins[13] = 1
	var analog [AnalogCount]uint16
	analog[0] = 712

	step := NewStepPayload("uno-1", 42, 1000, pins, analog, 123456)
	got, err := UnmarshalStep(step.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalStep: %v", err)
	}
	if got.BoardIDString() != "uno-1" || got.StepSeq != 42 || got.Pins[13] != 1 || got.Analog[0] != 712 {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}

func TestOutputStateDebugBits(t *testing.T) {
	var p OutputStatePayload
	p.SetDebugBit(DbgBitPC)
	p.SetDebugBit(DbgBitInterruptCount)

	got, err := UnmarshalOutputState(p.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalOutputState: %v", err)
	}
	if got.DebugBits[DbgBitPC/8]&(1<<uint(DbgBitPC%8)) == 0 {
		t.Fatalf("expected PC debug bit set")
	}
	if got.DebugBits[DbgBitInterruptCount/8]&(1<<uint(DbgBitInterruptCount%8)) == 0 {
		t.Fatalf("expected interrupt-count debug bit set")
	}
}

func TestLogMessageRoundTrip(t *testing.T) {
	raw := NewLogMessage("mega-1", LogWarning, "stack overflow detected")
	hdr, err := UnmarshalLogHeader(raw)
	if err != nil {
		t.Fatalf("UnmarshalLogHeader: %v", err)
	}
	if hdr.Level != uint8(LogWarning) {
		t.Fatalf("unexpected level: %d", hdr.Level)
	}
	msg := string(raw[LogPayloadHeaderSize:])
	if msg != "stack overflow detected" {
		t.Fatalf("unexpected message: %q", msg)
	}
}
