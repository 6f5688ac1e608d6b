package peripherals

import "github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"

// Engine bundles every peripheral device attached to one core and ticks
// them together once per emulated CPU cycle, the same "tick every device,
// then service interrupts" loop shape the teacher's virtual machine used
// for its PIT/serial/RTC/keyboard device set.
type Engine struct {
	Core *mcuavr.Core

	Timers [6]*Timer
	UARTs  [4]*UART
	ADC    *ADC
	SPI    *SPI
	TWI    *TWI
	WDT    *WDT
	PinINT *PinChangeController
}

// NewEngine builds and wires every peripheral for the core's board family.
// seed drives the deterministic LCGs used for UART/ADC noise injection so a
// session replay is bit-for-bit reproducible given the same seed.
func NewEngine(core *mcuavr.Core, seed uint64) *Engine {
	e := &Engine{Core: core}

	e.Timers[0] = NewTimer(core, 0, 8, false, TimerRegs{
		TCCRA: mcuavr.RegTCCR0A, TCCRB: mcuavr.RegTCCR0B,
		TCNTL: mcuavr.RegTCNT0, OCRAL: mcuavr.RegOCR0A, OCRBL: mcuavr.RegOCR0B,
		TIFR: mcuavr.RegTIFR0, TIMSK: mcuavr.RegTIMSK0,
	})
	e.Timers[1] = NewTimer(core, 1, 16, false, TimerRegs{
		TCCRA: mcuavr.RegTCCR1A, TCCRB: mcuavr.RegTCCR1B,
		TCNTL: mcuavr.RegTCNT1L, TCNTH: mcuavr.RegTCNT1H,
		OCRAL: mcuavr.RegOCR1AL, OCRAH: mcuavr.RegOCR1AH,
		OCRBL: mcuavr.RegOCR1BL, OCRBH: mcuavr.RegOCR1BH,
		ICRL: mcuavr.RegICR1L, ICRH: mcuavr.RegICR1H,
		TIFR: mcuavr.RegTIFR1, TIMSK: mcuavr.RegTIMSK1,
	})
	e.Timers[2] = NewTimer(core, 2, 8, true, TimerRegs{
		TCCRA: mcuavr.RegTCCR2A, TCCRB: mcuavr.RegTCCR2B,
		TCNTL: mcuavr.RegTCNT2, OCRAL: mcuavr.RegOCR2A, OCRBL: mcuavr.RegOCR2B,
		TIFR: mcuavr.RegTIFR2, TIMSK: mcuavr.RegTIMSK2,
	})

	e.UARTs[0] = NewUART(core, 0, seed, UARTRegs{
		UCSRA: mcuavr.RegUCSR0A, UCSRB: mcuavr.RegUCSR0B, UCSRC: mcuavr.RegUCSR0C,
		UBRRL: mcuavr.RegUBRR0L, UBRRH: mcuavr.RegUBRR0H, UDR: mcuavr.RegUDR0,
	})

	e.ADC = NewADC(core, seed^0x9E3779B97F4A7C15)
	e.SPI = NewSPI(core, mcuavr.RegSPCR, mcuavr.RegSPSR, mcuavr.RegSPDR)
	e.TWI = NewTWI(core)
	e.WDT = NewWDT(core)
	e.PinINT = NewPinChangeController(core)

	if core.Profile.Family == mcuavr.FamilyM2560 {
		e.Timers[3] = NewTimer(core, 3, 16, false, TimerRegs{
			TCCRA: mcuavr.RegTCCR3A, TCCRB: mcuavr.RegTCCR3B,
			TCNTL: mcuavr.RegTCNT3L, TCNTH: mcuavr.RegTCNT3H,
			OCRAL: mcuavr.RegOCR3AL, OCRAH: mcuavr.RegOCR3AH,
			OCRBL: mcuavr.RegOCR3BL, OCRBH: mcuavr.RegOCR3BH,
			ICRL: mcuavr.RegICR3L, ICRH: mcuavr.RegICR3H,
			TIFR: mcuavr.RegTIFR3, TIMSK: mcuavr.RegTIMSK3,
		})
		e.Timers[4] = NewTimer(core, 4, 16, false, TimerRegs{
			TCCRA: mcuavr.RegTCCR4A, TCCRB: mcuavr.RegTCCR4B,
			TCNTL: mcuavr.RegTCNT4L, TCNTH: mcuavr.RegTCNT4H,
			OCRAL: mcuavr.RegOCR4AL, OCRAH: mcuavr.RegOCR4AH,
			OCRBL: mcuavr.RegOCR4BL, OCRBH: mcuavr.RegOCR4BH,
			ICRL: mcuavr.RegICR4L, ICRH: mcuavr.RegICR4H,
			TIFR: mcuavr.RegTIFR4, TIMSK: mcuavr.RegTIMSK4,
		})
		e.Timers[5] = NewTimer(core, 5, 16, false, TimerRegs{
			TCCRA: mcuavr.RegTCCR5A, TCCRB: mcuavr.RegTCCR5B,
			TCNTL: mcuavr.RegTCNT5L, TCNTH: mcuavr.RegTCNT5H,
			OCRAL: mcuavr.RegOCR5AL, OCRAH: mcuavr.RegOCR5AH,
			OCRBL: mcuavr.RegOCR5BL, OCRBH: mcuavr.RegOCR5BH,
			ICRL: mcuavr.RegICR5L, ICRH: mcuavr.RegICR5H,
			TIFR: mcuavr.RegTIFR5, TIMSK: mcuavr.RegTIMSK5,
		})
		e.UARTs[1] = NewUART(core, 1, seed^1, UARTRegs{
			UCSRA: mcuavr.RegUCSR1A, UCSRB: mcuavr.RegUCSR1B, UCSRC: mcuavr.RegUCSR1C,
			UBRRL: mcuavr.RegUBRR1L, UBRRH: mcuavr.RegUBRR1H, UDR: mcuavr.RegUDR1,
		})
		e.UARTs[2] = NewUART(core, 2, seed^2, UARTRegs{
			UCSRA: mcuavr.RegUCSR2A, UCSRB: mcuavr.RegUCSR2B, UCSRC: mcuavr.RegUCSR2C,
			UBRRL: mcuavr.RegUBRR2L, UBRRH: mcuavr.RegUBRR2H, UDR: mcuavr.RegUDR2,
		})
		e.UARTs[3] = NewUART(core, 3, seed^3, UARTRegs{
			UCSRA: mcuavr.RegUCSR3A, UCSRB: mcuavr.RegUCSR3B, UCSRC: mcuavr.RegUCSR3C,
			UBRRL: mcuavr.RegUBRR3L, UBRRH: mcuavr.RegUBRR3H, UDR: mcuavr.RegUDR3,
		})
	}
	return e
}

// SamplePin reports the output byte for a protocol pin per the wire
// protocol's pin encoding: 0xFF for an input pin, a rounded 0..255 PWM
// duty for a pin whose bound timer is actively driving it in a PWM mode
// with its COM bits connected, otherwise the digital 0/1 from the PIN
// register. The pin router's binding table (mcuavr.PWMBinding) is the only
// place that decides which timer channel drives which pin.
func (e *Engine) SamplePin(pin int) byte {
	if !e.Core.IsPinOutput(pin) {
		return 0xFF
	}
	if timerIndex, channel, ok := e.Core.PWMBinding(pin); ok && e.Core.PWMOutputConnected(pin) {
		if t := e.Timers[timerIndex]; t != nil && t.IsPWMActive() {
			duty := t.PWMDutyA()
			if channel == 'B' {
				duty = t.PWMDutyB()
			}
			v := int(duty*255 + 0.5)
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			return byte(v)
		}
	}
	if e.Core.DigitalPinLevel(pin) {
		return 1
	}
	return 0
}

// Tick advances every attached peripheral by one CPU cycle. The session
// calls this once per executed instruction cycle, then calls
// Core.ServiceInterrupts to let any newly raised flag take effect on the
// next instruction boundary, matching real AVR interrupt latency.
func (e *Engine) Tick() {
	for _, t := range e.Timers {
		if t != nil {
			t.Tick()
		}
	}
	for _, u := range e.UARTs {
		if u != nil {
			u.Tick()
		}
	}
	e.ADC.Tick()
	e.SPI.Tick()
	e.TWI.Tick()
	e.WDT.Tick()
	e.PinINT.Tick()
}
