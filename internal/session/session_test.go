package session

import (
	"encoding/binary"
	"testing"

	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"
	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/wire"
)

// Hand-assembled opcode helpers mirroring mcuavr's field-extraction formulas
// in reverse, so this package's tests can build tiny firmware images
// without depending on mcuavr's unexported decode internals.

func asmLDI(d byte, k byte) uint16 {
	return 0xE000 | uint16(d-16)<<4 | uint16(k&0x0F) | uint16(k&0xF0)<<4
}

func asmOUT(d byte, ioAddr uint16) uint16 {
	return 0xB800 | uint16(d&0x1F)<<4 | (ioAddr & 0x0F) | ((ioAddr>>4)&0x03)<<9
}

func asmRJMP(offsetWords int16) uint16 {
	return 0xC000 | uint16(offsetWords)&0x0FFF
}

// buildRawContainer assembles a minimal BVM container with a raw (non-hex)
// ".text" section, matching the header/section-table layout firmware.Parse
// expects.
func buildRawContainer(t *testing.T, text []byte) []byte {
	t.Helper()
	const (
		magic            = 0x43534E45
		headerSize       = 24
		sectionEntrySize = 20
		sectionFlagRaw   = 1 << 4
	)
	tableOffset := uint32(headerSize)
	payloadOffset := tableOffset + sectionEntrySize
	buf := make([]byte, int(payloadOffset)+len(text))

	binary.LittleEndian.PutUint32(buf[0:4], magic)
	binary.LittleEndian.PutUint16(buf[4:6], 1)
	binary.LittleEndian.PutUint16(buf[6:8], 0)
	binary.LittleEndian.PutUint16(buf[8:10], headerSize)
	binary.LittleEndian.PutUint16(buf[10:12], 1)
	binary.LittleEndian.PutUint32(buf[12:16], 0)
	binary.LittleEndian.PutUint32(buf[16:20], tableOffset)
	binary.LittleEndian.PutUint32(buf[20:24], 0)

	base := int(tableOffset)
	copy(buf[base:base+8], ".text")
	binary.LittleEndian.PutUint32(buf[base+8:base+12], payloadOffset)
	binary.LittleEndian.PutUint32(buf[base+12:base+16], uint32(len(text)))
	binary.LittleEndian.PutUint32(buf[base+16:base+20], sectionFlagRaw)

	copy(buf[payloadOffset:], text)
	return buf
}

func wordsToBytes(words []uint16) []byte {
	out := make([]byte, len(words)*2)
	for i, w := range words {
		out[i*2] = byte(w)
		out[i*2+1] = byte(w >> 8)
	}
	return out
}

func blinkD13Firmware() []byte {
	return wordsToBytes([]uint16{
		asmLDI(16, 0x20),       // r16 = bit 5
		asmOUT(16, 4),          // DDRB = r16 (pin 13 -> output)
		asmOUT(16, 5),          // PORTB = r16 (pin 13 -> high)
		asmRJMP(-1),            // spin
	})
}

func TestStepWithoutFirmwareReportsUnknownPins(t *testing.T) {
	s := New("uno-1", mcuavr.DefaultBoardProfile(), 1)
	out, serial := s.Step(wire.NewStepPayload("uno-1", 1, 1000, [wire.PinCount]uint8{}, [wire.AnalogCount]uint16{}, 0))
	if out.StepSeq != 1 {
		t.Fatalf("expected echoed step_sequence 1, got %d", out.StepSeq)
	}
	if out.Pins[13] != wire.PinValueUnknown {
		t.Fatalf("expected unknown pin before any firmware load, got %d", out.Pins[13])
	}
	for _, b := range serial {
		if len(b) != 0 {
			t.Fatalf("expected no serial traffic without firmware")
		}
	}
}

func TestStepDrivesFirmwareAndTicksCycles(t *testing.T) {
	s := New("uno-1", mcuavr.DefaultBoardProfile(), 1)
	container := buildRawContainer(t, blinkD13Firmware())
	if _, err := s.LoadFirmware(container); err != nil {
		t.Fatalf("LoadFirmware: %v", err)
	}

	out, _ := s.Step(wire.NewStepPayload("uno-1", 7, 1000, [wire.PinCount]uint8{}, [wire.AnalogCount]uint16{}, 0))
	if out.StepSeq != 7 {
		t.Fatalf("expected echoed step_sequence 7, got %d", out.StepSeq)
	}
	wantCycles := uint64(float64(1000) * s.Profile.ClockHz / 1e6)
	if out.TickCount < wantCycles || out.TickCount > wantCycles+4 {
		t.Fatalf("expected tick_count near %d (a single instruction may overshoot the budget), got %d", wantCycles, out.TickCount)
	}
	if out.Pins[13] != 1 {
		t.Fatalf("expected D13 driven high after firmware ran, got %d", out.Pins[13])
	}
}

func TestStepSequenceMonotonic(t *testing.T) {
	s := New("uno-1", mcuavr.DefaultBoardProfile(), 1)
	container := buildRawContainer(t, blinkD13Firmware())
	if _, err := s.LoadFirmware(container); err != nil {
		t.Fatalf("LoadFirmware: %v", err)
	}

	var prev uint64
	for i := uint64(1); i <= 3; i++ {
		out, _ := s.Step(wire.NewStepPayload("uno-1", i, 500, [wire.PinCount]uint8{}, [wire.AnalogCount]uint16{}, 0))
		if out.TickCount < prev {
			t.Fatalf("tick_count went backwards: %d -> %d", prev, out.TickCount)
		}
		prev = out.TickCount
	}
}

func TestRegistryRebuildsOnProfileChange(t *testing.T) {
	r := NewRegistry("", 1)
	s1 := r.EnsureProfile("board-a", mcuavr.DefaultBoardProfile())
	container := buildRawContainer(t, blinkD13Firmware())
	if _, err := s1.LoadFirmware(container); err != nil {
		t.Fatalf("LoadFirmware: %v", err)
	}

	s2 := r.EnsureProfile("board-a", mcuavr.LookupBoardProfile("mega"))
	if s2.Profile.Family != mcuavr.FamilyM2560 {
		t.Fatalf("expected rebuild to adopt the mega profile")
	}
	out, _ := s2.Step(wire.NewStepPayload("board-a", 1, 0, [wire.PinCount]uint8{}, [wire.AnalogCount]uint16{}, 0))
	if out.Pins[0] != wire.PinValueUnknown {
		t.Fatalf("expected firmware to be dropped after profile rebuild")
	}
}

func TestEEPROMPersistsAcrossSessionRebuild(t *testing.T) {
	s := New("uno-1", mcuavr.DefaultBoardProfile(), 1)
	s.EEPROMPath = t.TempDir() + "/uno-1.eeprom"

	if err := s.PatchMemory(wire.MemEEPROM, 0x10, []byte{0xDE, 0xAD, 0xBE, 0xEF}); err != nil {
		t.Fatalf("PatchMemory: %v", err)
	}

	s2 := New("uno-1", mcuavr.DefaultBoardProfile(), 1)
	s2.EEPROMPath = s.EEPROMPath
	if err := s2.RestoreEEPROM(); err != nil {
		t.Fatalf("RestoreEEPROM: %v", err)
	}
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if got := s2.Core.EEPROM[0x10 : 0x10+4]; string(got) != string(want) {
		t.Fatalf("expected restored EEPROM bytes % x, got % x", want, got)
	}
}

func TestMarkFirmwareLoadedEnablesAdvance(t *testing.T) {
	s := New("uno-1", mcuavr.DefaultBoardProfile(), 1)
	flash := blinkD13Firmware()
	copy(s.Core.Flash, flash)
	s.Core.PC = 0

	before, _ := s.Step(wire.NewStepPayload("uno-1", 1, 1000, [wire.PinCount]uint8{}, [wire.AnalogCount]uint16{}, 0))
	if before.Pins[13] == 1 {
		t.Fatalf("expected D13 untouched before firmware is marked loaded")
	}

	s.MarkFirmwareLoaded()
	after, _ := s.Step(wire.NewStepPayload("uno-1", 2, 1000, [wire.PinCount]uint8{}, [wire.AnalogCount]uint16{}, 0))
	if after.Pins[13] != 1 {
		t.Fatalf("expected D13 driven high once firmware is marked loaded, got %d", after.Pins[13])
	}
}
