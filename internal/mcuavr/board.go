// Package mcuavr implements the CPU interpreter, unified data-space memory
// model, interrupt dispatch, and pin routing for the two supported AVR
// parts (ATmega328P and ATmega2560).
package mcuavr

import "strings"

// Family distinguishes the two supported AVR parts.
type Family int

const (
	FamilyM328P Family = iota
	FamilyM2560
)

func (f Family) String() string {
	if f == FamilyM2560 {
		return "ATmega2560"
	}
	return "ATmega328P"
}

// BoardProfile is an immutable record describing one board identity. It is
// created once per distinct id and never mutated afterward.
type BoardProfile struct {
	ID              string
	Family          Family
	FlashBytes      int
	SRAMBytes       int
	EEPROMBytes     int
	IOBytes         int
	PinCount        int
	ClockHz         float64
	BootloaderBytes int
	CoreLimited     bool
}

var (
	profileUno = BoardProfile{
		ID:              "ArduinoUno",
		Family:          FamilyM328P,
		FlashBytes:      0x8000,
		SRAMBytes:       0x0800,
		EEPROMBytes:     0x0400,
		IOBytes:         0x0100,
		PinCount:        20,
		ClockHz:         16000000.0,
		BootloaderBytes: 0x0200,
		CoreLimited:     false,
	}
	profileMega = BoardProfile{
		ID:              "ArduinoMega",
		Family:          FamilyM2560,
		FlashBytes:      0x40000,
		SRAMBytes:       0x2000,
		EEPROMBytes:     0x1000,
		IOBytes:         0x0200,
		PinCount:        70,
		ClockHz:         16000000.0,
		BootloaderBytes: 0x2000,
		CoreLimited:     true,
	}
)

// normalizeID lower-cases and strips everything but letters/digits, the same
// normalization the original firmware engine's BoardProfile.cpp applies
// before matching aliases.
func normalizeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
		}
	}
	return b.String()
}

// LookupBoardProfile resolves a board identity string (case/punctuation
// insensitive) to a profile. Unrecognized ids fall back to the Uno profile,
// matching the original engine's GetBoardProfile behavior.
func LookupBoardProfile(id string) BoardProfile {
	switch normalizeID(id) {
	case "arduinouno", "uno", "arduinopromini", "promini", "arduinonano", "nano":
		return profileUno
	case "arduinomega", "mega", "arduinomega2560", "mega2560":
		return profileMega
	default:
		return profileUno
	}
}

// DefaultBoardProfile returns the Uno/328P profile used when no board id
// has been specified yet.
func DefaultBoardProfile() BoardProfile {
	return profileUno
}

// EffectivePinCount returns the pin count exposed to the CPU, capped by the
// core-limited flag for boards whose physical pin count exceeds the
// protocol's fixed pin array size.
func (p BoardProfile) EffectivePinCount(protocolPinCount int) int {
	if p.CoreLimited && p.PinCount > protocolPinCount {
		return protocolPinCount
	}
	return p.PinCount
}
