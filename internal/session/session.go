// Package session implements the lockstep driver: per-board McuState
// ownership, delta-cycle scheduling, input latching, output sampling, and
// serial byte draining, the same "state-owning task" half of the
// teacher's I/O-task/state-task split (VirtualMachine.Run driving VCPUs
// while a transport loop feeds it commands) applied to one board instead
// of one virtual machine.
package session

import (
	"fmt"
	"log"
	"os"

	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/firmware"
	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"
	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/peripherals"
	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/trace"
	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/wire"
)

// Session owns one board's McuState exclusively; nothing here is safe for
// concurrent use from two goroutines, matching this core's single-writer
// concurrency model (internal/mcuavr.Core's own doc comment states the
// same invariant one level down).
type Session struct {
	BoardID string
	Profile mcuavr.BoardProfile

	Core   *mcuavr.Core
	Engine *peripherals.Engine

	cycleRemainder float64
	lastOutputs    []byte
	firmwareLoaded bool
	stepSequence   uint64

	uartTxTotal [4]uint64

	// Trace is the optional opcode-trace ring; nil disables tracing.
	Trace *trace.Ring

	// Debug gates verbose log.Printf diagnostics, the same "log only when
	// Debug is set" convention the rest of this corpus uses.
	Debug bool

	// EEPROMPath, when non-empty, is where EEPROM contents are persisted
	// after every successful firmware load.
	EEPROMPath string
}

// New builds a fresh session for the given board identity and profile. The
// seed drives the peripheral engine's deterministic noise generators; two
// sessions built with the same seed replay identically.
func New(boardID string, profile mcuavr.BoardProfile, seed uint64) *Session {
	core := mcuavr.NewCore(profile)
	s := &Session{
		BoardID:     boardID,
		Profile:     profile,
		Core:        core,
		Engine:      peripherals.NewEngine(core, seed),
		lastOutputs: make([]byte, profile.EffectivePinCount(wire.PinCount)),
	}
	for i := range s.lastOutputs {
		s.lastOutputs[i] = wire.PinValueUnknown
	}
	return s
}

// Rebuild replaces this session's McuState with a fresh one for a new
// profile, dropping any loaded firmware, matching §4.5's "if the requested
// board profile differs from the live one, rebuild McuState... and drop
// firmware" rule.
func (s *Session) Rebuild(profile mcuavr.BoardProfile, seed uint64) {
	s.Profile = profile
	s.Core = mcuavr.NewCore(profile)
	s.Engine = peripherals.NewEngine(s.Core, seed)
	s.cycleRemainder = 0
	s.firmwareLoaded = false
	s.lastOutputs = make([]byte, profile.EffectivePinCount(wire.PinCount))
	for i := range s.lastOutputs {
		s.lastOutputs[i] = wire.PinValueUnknown
	}
}

// LoadFirmware programs a parsed BVM container into this session's core.
func (s *Session) LoadFirmware(containerBytes []byte) (*firmware.LoadResult, error) {
	result, err := firmware.Load(s.Core, containerBytes, s.BoardID)
	if err != nil {
		if s.Debug {
			log.Printf("session %s: firmware load rejected: %v", s.BoardID, err)
		}
		return nil, err
	}
	s.firmwareLoaded = true
	if err := s.RestoreEEPROM(); err != nil && s.Debug {
		log.Printf("session %s: eeprom restore failed: %v", s.BoardID, err)
	}
	if err := s.PersistEEPROM(); err != nil && s.Debug {
		log.Printf("session %s: eeprom persist failed: %v", s.BoardID, err)
	}
	if s.Debug {
		log.Printf("session %s: firmware loaded, %d flash bytes / %d sram bytes, entry 0x%04x",
			s.BoardID, result.FlashBytesWritten, result.SRAMBytesWritten, result.EntryPoint)
	}
	return result, nil
}

// RestoreEEPROM loads this board's persisted EEPROM file (if one exists)
// into the core, matching a physical part's EEPROM surviving a reset that
// zeroed everything else. A missing file is not an error: a board's first
// boot has nothing to restore.
func (s *Session) RestoreEEPROM() error {
	if s.EEPROMPath == "" {
		return nil
	}
	data, err := os.ReadFile(s.EEPROMPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	copy(s.Core.EEPROM, data)
	return nil
}

// PersistEEPROM writes this board's current EEPROM contents to its backing
// file: raw bytes, no header, no versioning, per §6.
func (s *Session) PersistEEPROM() error {
	if s.EEPROMPath == "" {
		return nil
	}
	return os.WriteFile(s.EEPROMPath, s.Core.EEPROM, 0o644)
}

// PatchMemory applies an inbound MemoryPatch message to the named address
// space, persisting EEPROM immediately afterward so the round trip in
// §8's "EEPROM persistence" testable property holds even without a
// subsequent firmware load.
func (s *Session) PatchMemory(memType wire.MemoryType, address uint32, data []byte) error {
	var dst []byte
	switch memType {
	case wire.MemFlash:
		dst = s.Core.Flash
	case wire.MemSRAM:
		dst = s.Core.SRAM
	case wire.MemIO:
		dst = s.Core.IO
	case wire.MemEEPROM:
		dst = s.Core.EEPROM
	default:
		return fmt.Errorf("session: unknown memory type %d", memType)
	}
	end := int(address) + len(data)
	if end > len(dst) {
		return fmt.Errorf("session: patch of %d bytes at 0x%x exceeds %d-byte region", len(data), address, len(dst))
	}
	copy(dst[address:], data)
	if memType == wire.MemEEPROM {
		return s.PersistEEPROM()
	}
	return nil
}

// ResetTransient clears transient session state (serial buffers, last
// pin outputs) on transport loss, while preserving the McuState itself,
// per §5's cancellation rule.
func (s *Session) ResetTransient() {
	for i := range s.lastOutputs {
		s.lastOutputs[i] = wire.PinValueUnknown
	}
	s.uartTxTotal = [4]uint64{}
	for _, u := range s.Engine.UARTs {
		if u != nil {
			u.DrainTransmitted()
		}
	}
}

// MarkFirmwareLoaded flags this session as having resident firmware without
// going through LoadFirmware, for the STK500 bridge's LEAVE_PROGMODE
// command: flash has already been written page-by-page, so there is no
// container to parse, only the loaded flag to flip.
func (s *Session) MarkFirmwareLoaded() {
	s.firmwareLoaded = true
	if err := s.PersistEEPROM(); err != nil && s.Debug {
		log.Printf("session %s: eeprom persist failed: %v", s.BoardID, err)
	}
}

func boolToInt8(v bool) int8 {
	if v {
		return 1
	}
	return 0
}

// Step advances this session by one lockstep tick per §4.5: latches
// commanded pin/analog inputs, advances the CPU by the cycle budget
// implied by delta_micros (if any and if firmware is loaded), samples pin
// outputs, and returns the OutputState to emit plus any Serial bytes
// produced during the step. The lockstep contract is unconditional: this
// always returns exactly one OutputState, regardless of whether firmware
// is loaded or delta_micros is zero.
func (s *Session) Step(req wire.StepPayload) (wire.OutputStatePayload, [4][]byte) {
	s.stepSequence = req.StepSeq

	pinCount := s.Profile.EffectivePinCount(wire.PinCount)
	for i := 0; i < pinCount && i < len(req.Pins); i++ {
		s.Core.SetDigitalInput(i, boolToInt8(req.Pins[i] != 0))
	}
	for i := 0; i < len(s.Core.AnalogInputs) && i < len(req.Analog); i++ {
		s.Core.AnalogInputs[i] = float32(req.Analog[i]) * 5.0 / 1023.0
	}

	if req.DeltaMicros > 0 && s.firmwareLoaded {
		s.Core.SyncPins()
		s.Core.LatchPinHistory()
		s.advance(req.DeltaMicros)
	}

	s.Core.SyncPins()
	for i := 0; i < pinCount; i++ {
		s.lastOutputs[i] = s.Engine.SamplePin(i)
	}

	var serial [4][]byte
	for i, u := range s.Engine.UARTs {
		if u == nil {
			continue
		}
		bytes := u.DrainTransmitted()
		if len(bytes) > 0 {
			serial[i] = bytes
			s.uartTxTotal[i] += uint64(len(bytes))
		}
	}

	return s.buildOutputState(req), serial
}

// advance runs the CPU for the number of cycles delta_micros implies at
// this board's clock rate, absorbing the fractional remainder across
// steps so repeated small deltas still accumulate exact cycle counts.
func (s *Session) advance(deltaMicros uint32) {
	budgetF := float64(deltaMicros)*s.Profile.ClockHz/1e6 + s.cycleRemainder
	budget := int64(budgetF)
	s.cycleRemainder = budgetF - float64(budget)

	var spent int64
	for spent < budget {
		pc := s.Core.PC
		op := s.Core.PeekOpcode()
		executed := s.Core.Step()
		s.tickCycles(executed)
		spent += int64(executed)

		if s.Trace != nil {
			s.Trace.Push(trace.Record{PC: pc, Opcode: op, Cycles: executed, SREG: s.Core.SREG()})
		}

		if s.Core.ServiceInterrupts() {
			s.tickCycles(4)
			spent += 4
		}
	}
}

func (s *Session) tickCycles(n int) {
	for i := 0; i < n; i++ {
		s.Engine.Tick()
		s.Core.TickCount++
	}
}

func (s *Session) buildOutputState(req wire.StepPayload) wire.OutputStatePayload {
	out := wire.OutputStatePayload{
		StepSeq:     req.StepSeq,
		TickCount:   s.Core.TickCount,
		Cycles:      s.Core.TickCount,
		ADCSamples:  s.Engine.ADC.Samples,
		SPITransfers: s.Engine.SPI.Transfers,
		TWITransfers: s.Engine.TWI.Transfers,
		WDTResets:   s.Engine.WDT.Resets,
		FlashBytes:  uint32(s.Profile.FlashBytes),
		SRAMBytes:   uint32(s.Profile.SRAMBytes),
		EEPROMBytes: uint32(s.Profile.EEPROMBytes),
		IOBytes:     uint32(s.Profile.IOBytes),
		CPUHz:       uint32(s.Profile.ClockHz),
		PC:          uint16(s.Core.PC),
		SP:          s.Core.SP(),
		SREG:        s.Core.SREG(),
	}
	copy(out.BoardID[:], []byte(s.BoardID))
	for i, v := range s.lastOutputs {
		if i >= len(out.Pins) {
			break
		}
		out.Pins[i] = v
	}
	for i := range out.UARTTxBytes {
		out.UARTTxBytes[i] = s.uartTxTotal[i]
	}
	out.SetDebugBit(wire.DbgBitPC)
	out.SetDebugBit(wire.DbgBitSP)
	out.SetDebugBit(wire.DbgBitSREG)
	out.SetDebugBit(wire.DbgBitInterruptCount)
	out.SetDebugBit(wire.DbgBitTimerOverflows)
	out.SetDebugBit(wire.DbgBitGpioStateChanges)
	out.SetDebugBit(wire.DbgBitPwmCycles)
	out.SetDebugBit(wire.DbgBitI2cTransactions)
	out.SetDebugBit(wire.DbgBitSpiTransactions)
	out.DebugBitCount = wire.DebugBitCount
	return out
}

// Status returns a lightweight heartbeat payload for this session.
func (s *Session) Status() wire.StatusPayload {
	return wire.NewStatusPayload(s.BoardID, s.Core.TickCount)
}

// String implements fmt.Stringer for log lines.
func (s *Session) String() string {
	return fmt.Sprintf("session(%s, %s, firmware_loaded=%v)", s.BoardID, s.Profile.ID, s.firmwareLoaded)
}
