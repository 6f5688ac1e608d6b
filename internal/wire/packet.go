// Package wire implements the lockstep protocol's binary packet framing:
// a fixed header followed by a type-specific payload, matching the
// firmware engine's original wire format byte-for-byte so a simulator
// speaking that protocol can drive this implementation unmodified.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ProtocolMagic is the fixed 4-byte value ("RTFW" packed little-endian)
// every packet header must carry.
const ProtocolMagic = 0x57465452

const (
	VersionMajor = 1
	VersionMinor = 3
)

const MaxPayloadBytes = 8 * 1024 * 1024

const (
	FeatureTimestampMicros = 1 << 0
	FeaturePerfCounters    = 1 << 1
	FeatureDiagnosticBits  = 1 << 2
)

// MessageType names one of the ten lockstep message kinds.
type MessageType uint16

const (
	MsgHello       MessageType = 1
	MsgHelloAck    MessageType = 2
	MsgLoadBvm     MessageType = 3
	MsgStep        MessageType = 4
	MsgOutputState MessageType = 5
	MsgSerial      MessageType = 6
	MsgStatus      MessageType = 7
	MsgLog         MessageType = 8
	MsgError       MessageType = 9
	MsgMemoryPatch MessageType = 10
)

// LogLevel mirrors the three severities the Log message carries.
type LogLevel uint8

const (
	LogInfo    LogLevel = 1
	LogWarning LogLevel = 2
	LogError   LogLevel = 3
)

// Header is the fixed 20-byte frame prefix preceding every payload.
type Header struct {
	Magic        uint32
	VersionMajor uint16
	VersionMinor uint16
	Type         uint16
	Flags        uint16
	PayloadSize  uint32
	Sequence     uint32
}

const HeaderSize = 20

var (
	ErrBadMagic         = errors.New("wire: packet magic mismatch")
	ErrOversizedPayload = errors.New("wire: payload exceeds 8 MiB limit")
	ErrShortRead        = errors.New("wire: short read while framing packet")
)

// WriteHeader serializes h in wire byte order.
func WriteHeader(w io.Writer, h Header) error {
	return binary.Write(w, binary.LittleEndian, h)
}

// ReadHeader deserializes and validates a packet header: bad magic or an
// oversized declared payload are reported as ErrBadMagic/ErrOversizedPayload
// so the session can classify them as a ProtocolFramingError.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return h, fmt.Errorf("%w: %v", ErrShortRead, err)
		}
		return h, err
	}
	if h.Magic != ProtocolMagic {
		return h, ErrBadMagic
	}
	if h.PayloadSize > MaxPayloadBytes {
		return h, ErrOversizedPayload
	}
	return h, nil
}

// Packet is a decoded header plus its raw payload bytes, ready for a
// message-specific Unmarshal call.
type Packet struct {
	Header  Header
	Payload []byte
}

// ReadPacket reads one full framed packet (header + payload) from r.
func ReadPacket(r io.Reader) (Packet, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return Packet{}, err
	}
	payload := make([]byte, h.PayloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Packet{}, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	return Packet{Header: h, Payload: payload}, nil
}

// WritePacket frames and writes msgType/payload/sequence as one packet.
func WritePacket(w io.Writer, msgType MessageType, flags uint16, sequence uint32, payload []byte) error {
	if len(payload) > MaxPayloadBytes {
		return ErrOversizedPayload
	}
	h := Header{
		Magic:        ProtocolMagic,
		VersionMajor: VersionMajor,
		VersionMinor: VersionMinor,
		Type:         uint16(msgType),
		Flags:        flags,
		PayloadSize:  uint32(len(payload)),
		Sequence:     sequence,
	}
	var buf bytes.Buffer
	if err := WriteHeader(&buf, h); err != nil {
		return err
	}
	buf.Write(payload)
	_, err := w.Write(buf.Bytes())
	return err
}
