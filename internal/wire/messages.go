package wire

import (
	"bytes"
	"encoding/binary"
)

const (
	PinCount        = 70
	PinValueUnknown = 0xFF
	AnalogCount     = 16
	BoardIDSize     = 64
	DebugBitCount   = 768
	DebugBitBytes   = (DebugBitCount + 7) / 8
)

// Debug-bit offsets into OutputStatePayload.DebugBits, one per diagnostic
// counter the extended status report carries.
const (
	DbgBitPC                    = 0
	DbgBitSP                    = 16
	DbgBitSREG                  = 32
	DbgBitFlashBytes            = 40
	DbgBitSRAMBytes             = 72
	DbgBitEEPROMBytes           = 104
	DbgBitIOBytes               = 136
	DbgBitCPUHz                 = 168
	DbgBitStackHighWater        = 200
	DbgBitHeapTop               = 216
	DbgBitStackMin              = 232
	DbgBitDataSegmentEnd        = 248
	DbgBitStackOverflows        = 264
	DbgBitInvalidMem            = 296
	DbgBitInterruptCount        = 328
	DbgBitInterruptLatencyMax   = 360
	DbgBitTimingViolations      = 392
	DbgBitCriticalSectionCycles = 424
	DbgBitSleepCycles           = 456
	DbgBitFlashAccessCycles     = 488
	DbgBitUartOverflows         = 520
	DbgBitTimerOverflows        = 552
	DbgBitBrownOutResets        = 584
	DbgBitGpioStateChanges      = 616
	DbgBitPwmCycles             = 648
	DbgBitI2cTransactions       = 680
	DbgBitSpiTransactions       = 712
)

func marshalFixed(v any) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func unmarshalFixed(data []byte, v any) error {
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, v)
}

func boardIDBytes(id string) [BoardIDSize]byte {
	var b [BoardIDSize]byte
	copy(b[:], id)
	return b
}

func boardIDString(b [BoardIDSize]byte) string {
	n := bytes.IndexByte(b[:], 0)
	if n < 0 {
		n = len(b)
	}
	return string(b[:n])
}

// HelloPayload is the client's capability announcement.
type HelloPayload struct {
	Flags       uint32
	PinCount    uint32
	BoardIDSize uint32
	AnalogCount uint32
}

func (p HelloPayload) Marshal() []byte { return marshalFixed(p) }
func UnmarshalHello(data []byte) (HelloPayload, error) {
	var p HelloPayload
	err := unmarshalFixed(data, &p)
	return p, err
}

// HelloAckPayload is the session's reply, naming the attached profile's
// memory geography and clock rate.
type HelloAckPayload struct {
	Flags       uint32
	PinCount    uint32
	BoardIDSize uint32
	AnalogCount uint32
	FlashBytes  uint32
	SRAMBytes   uint32
	EEPROMBytes uint32
	IOBytes     uint32
	CPUHz       uint32
}

func (p HelloAckPayload) Marshal() []byte { return marshalFixed(p) }
func UnmarshalHelloAck(data []byte) (HelloAckPayload, error) {
	var p HelloAckPayload
	err := unmarshalFixed(data, &p)
	return p, err
}

// StepPayload drives one lockstep tick: the board to advance, the elapsed
// wall-clock slice, and the host-forced pin/analog inputs for that slice.
type StepPayload struct {
	BoardID     [BoardIDSize]byte
	StepSeq     uint64
	DeltaMicros uint32
	Pins        [PinCount]uint8
	Analog      [AnalogCount]uint16
	SentMicros  uint64
}

func (p StepPayload) Marshal() []byte { return marshalFixed(p) }
func UnmarshalStep(data []byte) (StepPayload, error) {
	var p StepPayload
	err := unmarshalFixed(data, &p)
	return p, err
}
func (p StepPayload) BoardIDString() string { return boardIDString(p.BoardID) }
func NewStepPayload(boardID string, stepSeq uint64, deltaMicros uint32, pins [PinCount]uint8, analog [AnalogCount]uint16, sentMicros uint64) StepPayload {
	return StepPayload{BoardID: boardIDBytes(boardID), StepSeq: stepSeq, DeltaMicros: deltaMicros, Pins: pins, Analog: analog, SentMicros: sentMicros}
}

// LoadBvmHeader precedes the raw container bytes in a LoadBvm message.
type LoadBvmHeader struct {
	BoardID      [BoardIDSize]byte
	BoardProfile [BoardIDSize]byte
}

const LoadBvmHeaderSize = 2 * BoardIDSize

func (h LoadBvmHeader) Marshal() []byte { return marshalFixed(h) }
func UnmarshalLoadBvmHeader(data []byte) (LoadBvmHeader, error) {
	var h LoadBvmHeader
	err := unmarshalFixed(data, &h)
	return h, err
}
func (h LoadBvmHeader) BoardIDString() string      { return boardIDString(h.BoardID) }
func (h LoadBvmHeader) BoardProfileString() string { return boardIDString(h.BoardProfile) }
func NewLoadBvmHeader(boardID, boardProfile string) LoadBvmHeader {
	return LoadBvmHeader{BoardID: boardIDBytes(boardID), BoardProfile: boardIDBytes(boardProfile)}
}

// OutputStatePayload is the extended per-step diagnostic report: pin
// snapshot, peripheral activity counters, stack/heap diagnostics, and the
// DebugBits block naming which of those counters are meaningful this step.
type OutputStatePayload struct {
	BoardID                [BoardIDSize]byte
	StepSeq                uint64
	TickCount              uint64
	Pins                   [PinCount]uint8
	Cycles                 uint64
	ADCSamples             uint64
	UARTTxBytes            [4]uint64
	UARTRxBytes            [4]uint64
	SPITransfers           uint64
	TWITransfers           uint64
	WDTResets              uint64
	TimestampMicros        uint64
	FlashBytes             uint32
	SRAMBytes              uint32
	EEPROMBytes            uint32
	IOBytes                uint32
	CPUHz                  uint32
	PC                     uint16
	SP                     uint16
	SREG                   uint8
	Reserved0              uint8
	StackHighWater         uint16
	HeapTopAddress         uint16
	StackMinAddress        uint16
	DataSegmentEnd         uint16
	StackOverflows         uint64
	InvalidMemoryAccesses  uint64
	InterruptCount         uint64
	InterruptLatencyMax    uint64
	TimingViolations       uint64
	CriticalSectionCycles  uint64
	SleepCycles            uint64
	FlashAccessCycles      uint64
	UARTOverflows          uint64
	TimerOverflows         uint64
	BrownOutResets         uint64
	GPIOStateChanges       uint64
	PWMCycles              uint64
	I2CTransactions        uint64
	SPITransactions        uint64
	DebugBitCount          uint16
	Reserved1              uint16
	DebugBits              [DebugBitBytes]uint8
}

func (p OutputStatePayload) Marshal() []byte { return marshalFixed(p) }
func UnmarshalOutputState(data []byte) (OutputStatePayload, error) {
	var p OutputStatePayload
	err := unmarshalFixed(data, &p)
	return p, err
}
func (p OutputStatePayload) BoardIDString() string { return boardIDString(p.BoardID) }

// SetDebugBit marks one diagnostic counter as meaningful for this step.
func (p *OutputStatePayload) SetDebugBit(offset int) {
	p.DebugBits[offset/8] |= 1 << uint(offset%8)
}

// MemoryType names the address space a MemoryPatch targets.
type MemoryType uint8

const (
	MemFlash  MemoryType = 1
	MemSRAM   MemoryType = 2
	MemIO     MemoryType = 3
	MemEEPROM MemoryType = 4
)

// MemoryPatchHeader precedes the raw bytes in a MemoryPatch message,
// letting a host inject or inspect arbitrary memory for debugging.
type MemoryPatchHeader struct {
	BoardID    [BoardIDSize]byte
	MemoryType uint8
	Reserved   [3]uint8
	Address    uint32
	Length     uint32
}

const MemoryPatchHeaderSize = BoardIDSize + 1 + 3 + 4 + 4

func (h MemoryPatchHeader) Marshal() []byte { return marshalFixed(h) }
func UnmarshalMemoryPatchHeader(data []byte) (MemoryPatchHeader, error) {
	var h MemoryPatchHeader
	err := unmarshalFixed(data, &h)
	return h, err
}
func (h MemoryPatchHeader) BoardIDString() string { return boardIDString(h.BoardID) }

// StatusPayload is a lightweight heartbeat naming one board's tick count.
type StatusPayload struct {
	BoardID   [BoardIDSize]byte
	TickCount uint64
}

func (p StatusPayload) Marshal() []byte { return marshalFixed(p) }
func UnmarshalStatus(data []byte) (StatusPayload, error) {
	var p StatusPayload
	err := unmarshalFixed(data, &p)
	return p, err
}
func NewStatusPayload(boardID string, tickCount uint64) StatusPayload {
	return StatusPayload{BoardID: boardIDBytes(boardID), TickCount: tickCount}
}

// ErrorPayload reports a LoadRejected/fault condition with a numeric code.
type ErrorPayload struct {
	BoardID [BoardIDSize]byte
	Code    uint32
}

func (p ErrorPayload) Marshal() []byte { return marshalFixed(p) }
func UnmarshalError(data []byte) (ErrorPayload, error) {
	var p ErrorPayload
	err := unmarshalFixed(data, &p)
	return p, err
}
func NewErrorPayload(boardID string, code uint32) ErrorPayload {
	return ErrorPayload{BoardID: boardIDBytes(boardID), Code: code}
}

// LogPayload's variable-length message text follows this fixed header in
// the packet's payload.
type LogPayload struct {
	BoardID [BoardIDSize]byte
	Level   uint8
}

const LogPayloadHeaderSize = BoardIDSize + 1

func (p LogPayload) Marshal() []byte { return marshalFixed(p) }
func UnmarshalLogHeader(data []byte) (LogPayload, error) {
	var p LogPayload
	err := unmarshalFixed(data[:LogPayloadHeaderSize], &p)
	return p, err
}
func NewLogMessage(boardID string, level LogLevel, message string) []byte {
	p := LogPayload{BoardID: boardIDBytes(boardID), Level: uint8(level)}
	return append(p.Marshal(), []byte(message)...)
}
