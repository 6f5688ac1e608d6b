package peripherals

import (
	"testing"

	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"
)

func newTestEngine() (*mcuavr.Core, *Engine) {
	core := mcuavr.NewCore(mcuavr.DefaultBoardProfile())
	return core, NewEngine(core, 1234)
}

func newTestMegaEngine() (*mcuavr.Core, *Engine) {
	core := mcuavr.NewCore(mcuavr.LookupBoardProfile("mega2560"))
	return core, NewEngine(core, 1234)
}

func TestMegaTimer1DrivesPWMOnPin11(t *testing.T) {
	core, eng := newTestMegaEngine()
	core.SetIOBit(mcuavr.RegDDRB, 5, true)  // D11/PB5 as output
	core.WriteIORaw(mcuavr.RegTCCR1A, 0x81) // COM1A1=1 (connect OC1A to the pin), WGM10=1
	core.WriteIORaw(mcuavr.RegTCCR1B, 0x11) // WGM13=1, CS10=1 (with WGM10: mode 9, phase-correct PWM, TOP=OCR1A, no prescale)
	core.WriteIORaw(mcuavr.RegOCR1AL, 0xFF) // full-scale compare value
	core.WriteIORaw(mcuavr.RegOCR1AH, 0xFF)

	if !core.IsPinOutput(11) {
		t.Fatalf("expected D11 to read as an output pin")
	}
	timerIdx, channel, ok := core.PWMBinding(11)
	if !ok || timerIdx != 1 || channel != 'A' {
		t.Fatalf("expected D11 bound to Timer1 channel A, got timer=%d channel=%c ok=%v", timerIdx, channel, ok)
	}
	if !eng.Timers[1].IsPWMActive() {
		t.Fatalf("expected Timer1 to report PWM-active with WGM bits selecting phase-correct PWM")
	}
	if b := eng.SamplePin(11); b != 0xFF {
		t.Fatalf("expected D11 to sample full-scale PWM duty from Timer1/OC1A, got 0x%02X", b)
	}
}

func TestTimer0OverflowRaisesFlag(t *testing.T) {
	core, eng := newTestEngine()
	core.WriteIORaw(mcuavr.RegTCCR0B, 0x01) // CS=1: no prescaling
	for i := 0; i < 257; i++ {
		eng.Timers[0].Tick()
	}
	if !core.IOBit(mcuavr.RegTIFR0, 0) {
		t.Fatalf("expected TOV0 set after 256 ticks with no prescaling")
	}
}

func TestTimer0FastPWMWrapsAndMatchesOCR0AZeroOnSameTick(t *testing.T) {
	core, eng := newTestEngine()
	core.WriteIORaw(mcuavr.RegTCCR0A, 0x03) // WGM01:00=11: fast PWM, TOP=0xFF
	core.WriteIORaw(mcuavr.RegTCCR0B, 0x01) // CS00=1: no prescaling
	core.WriteIORaw(mcuavr.RegOCR0A, 0x00)  // compare match lands exactly at the wrap

	for i := 0; i < 255; i++ {
		eng.Timers[0].Tick()
	}
	if core.IOBit(mcuavr.RegTIFR0, 0) || core.IOBit(mcuavr.RegTIFR0, 1) {
		t.Fatalf("TOV0/OCF0A must not fire before the 256th tick")
	}
	eng.Timers[0].Tick()
	if !core.IOBit(mcuavr.RegTIFR0, 0) {
		t.Fatalf("expected TOV0 set exactly on the 256th tick (TOP=0xFF wrap)")
	}
	if !core.IOBit(mcuavr.RegTIFR0, 1) {
		t.Fatalf("expected OCF0A set on the same tick the counter wraps to 0 (OCR0A=0)")
	}
}

func TestTimer1WrapsAtExactly65536Cycles(t *testing.T) {
	core, eng := newTestEngine()
	core.WriteIORaw(mcuavr.RegTCCR1A, 0x00) // WGM11:10=00: normal mode, TOP=0xFFFF
	core.WriteIORaw(mcuavr.RegTCCR1B, 0x01) // CS10=1: no prescaling

	for i := 0; i < 65535; i++ {
		eng.Timers[1].Tick()
	}
	if core.IOBit(mcuavr.RegTIFR1, 0) {
		t.Fatalf("TOV1 must not fire before cycle 65536")
	}
	eng.Timers[1].Tick()
	if !core.IOBit(mcuavr.RegTIFR1, 0) {
		t.Fatalf("expected TOV1 set at exactly the 65536th cycle")
	}
	lo := core.ReadIORaw(mcuavr.RegTCNT1L)
	hi := core.ReadIORaw(mcuavr.RegTCNT1H)
	if lo != 0 || hi != 0 {
		t.Fatalf("expected TCNT1 to have wrapped to 0, got 0x%02X%02X", hi, lo)
	}
}

func TestADCCompletesAtExactly1664Cycles(t *testing.T) {
	core, eng := newTestEngine()
	eng.ADC.NoiseAmplitude = 0
	core.AnalogInputs[0] = 1.0
	core.WriteData(mcuavr.RegADCSRA, 0x47) // ADSC | prescaler 7 (div 128): 13*128=1664

	for i := 0; i < 1663; i++ {
		eng.ADC.Tick()
	}
	if core.IOBit(mcuavr.RegADCSRA, 4) {
		t.Fatalf("ADIF must not fire before cycle 1664")
	}
	eng.ADC.Tick()
	if !core.IOBit(mcuavr.RegADCSRA, 4) {
		t.Fatalf("expected ADIF set at exactly the 1664th cycle (13 * max prescaler 128)")
	}
}

func TestUARTLoopbackTiming(t *testing.T) {
	core, eng := newTestEngine()
	u := eng.UARTs[0]
	core.WriteIORaw(mcuavr.RegUCSR0B, 0x18) // TXEN|RXEN
	core.WriteIORaw(mcuavr.RegUBRR0L, 0)
	core.WriteIORaw(mcuavr.RegUBRR0H, 0)

	core.WriteData(mcuavr.RegUDR0, 0x41)
	cycles := u.byteCycles()
	for i := int64(0); i < cycles+1; i++ {
		u.Tick()
	}
	out := u.DrainTransmitted()
	if len(out) != 1 || out[0] != 0x41 {
		t.Fatalf("expected transmitted byte 0x41, got %v", out)
	}

	u.EnqueueReceive(0x55)
	for i := int64(0); i < 2*cycles+1; i++ {
		u.Tick()
	}
	if !core.IOBit(mcuavr.RegUCSR0A, 7) {
		t.Fatalf("expected RXC0 set after receive shift completes")
	}
	if got := core.ReadData(mcuavr.RegUDR0); got != 0x55 {
		t.Fatalf("expected received byte 0x55, got 0x%02X", got)
	}
}

func TestADCConversion(t *testing.T) {
	core, eng := newTestEngine()
	eng.ADC.NoiseAmplitude = 0
	core.AnalogInputs[0] = 2.5
	core.WriteData(mcuavr.RegADCSRA, 0x40) // ADSC, prescaler 0 -> table[0]=2
	for i := 0; i < 13*2+1; i++ {
		eng.ADC.Tick()
	}
	lo := core.ReadIORaw(mcuavr.RegADCL)
	hi := core.ReadIORaw(mcuavr.RegADCH)
	result := int(lo) | int(hi)<<8
	if result < 500 || result > 524 {
		t.Fatalf("expected ~512 for mid-scale input, got %d", result)
	}
	if !core.IOBit(mcuavr.RegADCSRA, 4) {
		t.Fatalf("expected ADIF set after conversion")
	}
}

func TestSPISPSRArmsSPDRClearsSPIFAndWCOL(t *testing.T) {
	core, eng := newTestEngine()
	core.WriteIORaw(mcuavr.RegSPCR, 0x40) // SPE set, bus enabled
	core.WriteData(mcuavr.RegSPDR, 0x99)  // starts the transfer
	core.WriteData(mcuavr.RegSPDR, 0x11)  // collides with the in-flight transfer
	if !core.IOBit(mcuavr.RegSPSR, 6) {
		t.Fatalf("expected WCOL set on write collision")
	}
	for i := int64(0); i < eng.SPI.transferCycles()+1; i++ {
		eng.SPI.Tick()
	}
	if !core.IOBit(mcuavr.RegSPSR, 7) {
		t.Fatalf("expected SPIF set after transfer completes")
	}

	core.ReadData(mcuavr.RegSPSR) // arms the clear sequence
	if !core.IOBit(mcuavr.RegSPSR, 7) || !core.IOBit(mcuavr.RegSPSR, 6) {
		t.Fatalf("SPIF/WCOL must still be set until SPDR is read")
	}
	core.ReadData(mcuavr.RegSPDR) // completes the clear sequence
	if core.IOBit(mcuavr.RegSPSR, 7) {
		t.Fatalf("expected SPIF cleared after SPSR-then-SPDR read sequence")
	}
	if core.IOBit(mcuavr.RegSPSR, 6) {
		t.Fatalf("expected WCOL cleared after SPSR-then-SPDR read sequence")
	}
}

func TestSPISPDRReadWithoutSPSRDoesNotClearFlags(t *testing.T) {
	core, eng := newTestEngine()
	core.WriteIORaw(mcuavr.RegSPCR, 0x40)
	core.WriteData(mcuavr.RegSPDR, 0x42)
	for i := int64(0); i < eng.SPI.transferCycles()+1; i++ {
		eng.SPI.Tick()
	}
	core.ReadData(mcuavr.RegSPDR) // SPSR was never read: sequence not armed
	if !core.IOBit(mcuavr.RegSPSR, 7) {
		t.Fatalf("expected SPIF to survive an SPDR read that wasn't preceded by an SPSR read")
	}
}

func twiFinishPhase(core *mcuavr.Core, eng *Engine, twcr byte) {
	core.WriteData(mcuavr.RegTWCR, twcr)
	for i := int64(0); i < eng.TWI.bitCycles()*9+1; i++ {
		eng.TWI.Tick()
	}
}

func TestTWIMasterTransmitAcksWhenSlavePresentAndTWEASet(t *testing.T) {
	core, eng := newTestEngine()
	core.WriteIORaw(mcuavr.RegTWBR, 1)
	eng.TWI.SlavePresent = func(byte) bool { return true }

	twiFinishPhase(core, eng, 0xA0) // TWINT|TWSTA: send START
	core.WriteIORaw(mcuavr.RegTWDR, 0x10) // SLA+W, address 0x08
	twiFinishPhase(core, eng, 0x80)       // TWINT: send address
	if got := core.ReadIORaw(mcuavr.RegTWSR); got != twiStatusMTSlaAck {
		t.Fatalf("expected MT_SLA_ACK 0x%02X after address phase, got 0x%02X", twiStatusMTSlaAck, got)
	}

	core.WriteIORaw(mcuavr.RegTWDR, 0xAB)
	twiFinishPhase(core, eng, 0x80|0x40) // TWINT|TWEA: send data, ack enabled
	if got := core.ReadIORaw(mcuavr.RegTWSR); got != twiStatusMTDataAck {
		t.Fatalf("expected MT_DATA_ACK 0x%02X, got 0x%02X", twiStatusMTDataAck, got)
	}
}

func TestTWIMasterTransmitNacksWhenSlaveAbsent(t *testing.T) {
	core, eng := newTestEngine()
	core.WriteIORaw(mcuavr.RegTWBR, 1)
	eng.TWI.SlavePresent = func(byte) bool { return false }

	twiFinishPhase(core, eng, 0xA0)
	core.WriteIORaw(mcuavr.RegTWDR, 0x10)
	twiFinishPhase(core, eng, 0x80)

	core.WriteIORaw(mcuavr.RegTWDR, 0xAB)
	twiFinishPhase(core, eng, 0x80|0x40)
	if got := core.ReadIORaw(mcuavr.RegTWSR); got != twiStatusMTDataNack {
		t.Fatalf("expected MT_DATA_NACK 0x%02X when no slave is present, got 0x%02X", twiStatusMTDataNack, got)
	}
}

func TestWatchdogResetsOnExpiry(t *testing.T) {
	core, eng := newTestEngine()
	core.Flash[0] = 0xAB // sentinel: the watchdog's SoftReset leaves flash intact
	core.WriteIORaw(mcuavr.RegWDTCSR, 0x08) // WDE set, shortest period
	eng.WDT.rearm(core.ReadIORaw(mcuavr.RegWDTCSR))
	for i := 0; i < int(eng.WDT.cyclesRemaining)+1; i++ {
		eng.WDT.Tick()
	}
	if core.IO[mcuavr.RegSREG] != 0 {
		t.Fatalf("expected IO cleared after watchdog system reset")
	}
}
