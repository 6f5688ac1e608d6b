// Package peripherals implements the AVR peripheral engine: six timer/
// counters with PWM, four UARTs, the ADC, SPI, TWI, watchdog, and pin-change
// / external-interrupt controllers, all driven one CPU cycle at a time from
// the session's step loop. Each device owns a slice of the mcuavr.Core I/O
// space through read/write hooks, the same per-register hook pattern the
// teacher's device layer used for its 8254 PIT and 16550 UART.
package peripherals

import "github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"

// WGMMode is the waveform generation mode a timer is configured for.
type WGMMode int

const (
	WGMNormal WGMMode = iota
	WGMCTC
	WGMFastPWM
	WGMPhaseCorrectPWM
)

// topSource selects what value a timer counts up (or up/down) to before
// wrapping or restarting.
type topSource int

const (
	topFixed topSource = iota // 0xFF / 0xFFFF depending on width
	topOCRA
	topICR
)

var prescaler16Entries = []int{0, 1, 8, 64, 256, 1024}
var prescaler2Entries = []int{0, 1, 8, 32, 64, 128, 256, 1024}

// Timer models one of the six hardware timer/counters. Width is 8 for
// Timer0/Timer2 and 16 for Timer1/Timer3/Timer4/Timer5.
type Timer struct {
	core  *mcuavr.Core
	index int
	width int

	tccrA, tccrB, tcntL, tcntH, ocrAL, ocrAH, ocrBL, ocrBH, icrL, icrH uint16
	tifr, timsk                                                        uint16
	isAsync                                                            bool // Timer2-style extra prescaler taps

	counter   uint32
	direction int8 // +1 counting up, -1 counting down (phase-correct)
	prescaleAccum int
	ocrAShadow, ocrBShadow uint32
}

// NewTimer wires one timer's registers into the core and returns the handle
// the engine uses to tick it every cycle.
func NewTimer(core *mcuavr.Core, index int, width int, isAsync bool, regs TimerRegs) *Timer {
	t := &Timer{
		core: core, index: index, width: width, isAsync: isAsync,
		tccrA: regs.TCCRA, tccrB: regs.TCCRB,
		tcntL: regs.TCNTL, tcntH: regs.TCNTH,
		ocrAL: regs.OCRAL, ocrAH: regs.OCRAH,
		ocrBL: regs.OCRBL, ocrBH: regs.OCRBH,
		icrL: regs.ICRL, icrH: regs.ICRH,
		tifr: regs.TIFR, timsk: regs.TIMSK,
		direction: 1,
	}
	core.RegisterClearOnWrite1(regs.TIFR)
	return t
}

// TimerRegs names the absolute I/O addresses one timer instance binds to;
// 8-bit timers leave TCNTH/OCRAH/OCRBH/ICRL/ICRH at zero.
type TimerRegs struct {
	TCCRA, TCCRB                 uint16
	TCNTL, TCNTH                 uint16
	OCRAL, OCRAH, OCRBL, OCRBH   uint16
	ICRL, ICRH                   uint16
	TIFR, TIMSK                  uint16
}

func (t *Timer) csBits() byte {
	if t.width == 8 && !t.isAsync {
		return t.core.ReadIORaw(t.tccrB) & 0x07
	}
	return t.core.ReadIORaw(t.tccrB) & 0x07
}

func (t *Timer) prescaleDivisor() int {
	cs := t.csBits()
	table := prescaler16Entries
	if t.isAsync {
		table = prescaler2Entries
	}
	if int(cs) >= len(table) {
		return 0
	}
	return table[cs]
}

func (t *Timer) wgmBits() byte {
	a := t.core.ReadIORaw(t.tccrA) & 0x03
	b := (t.core.ReadIORaw(t.tccrB) >> 3) & 0x01
	if t.width == 8 {
		return a | b<<2
	}
	b2 := (t.core.ReadIORaw(t.tccrB) >> 4) & 0x01
	return a | b<<2 | b2<<3
}

func (t *Timer) decodeWGM() (WGMMode, topSource) {
	bits := t.wgmBits()
	if t.width == 8 {
		switch bits {
		case 0:
			return WGMNormal, topFixed
		case 1:
			return WGMPhaseCorrectPWM, topFixed
		case 2:
			return WGMCTC, topOCRA
		case 3:
			return WGMFastPWM, topFixed
		case 5:
			return WGMPhaseCorrectPWM, topOCRA
		case 7:
			return WGMFastPWM, topOCRA
		default:
			return WGMNormal, topFixed
		}
	}
	switch bits {
	case 0:
		return WGMNormal, topFixed
	case 4:
		return WGMCTC, topOCRA
	case 12:
		return WGMCTC, topICR
	case 1, 2, 3:
		return WGMPhaseCorrectPWM, topFixed
	case 5, 6, 7:
		return WGMFastPWM, topFixed
	case 8, 10:
		return WGMPhaseCorrectPWM, topICR
	case 9, 11:
		return WGMPhaseCorrectPWM, topOCRA
	case 14:
		return WGMFastPWM, topICR
	case 15:
		return WGMFastPWM, topOCRA
	default:
		return WGMNormal, topFixed
	}
}

func (t *Timer) topValue(source topSource) uint32 {
	switch source {
	case topOCRA:
		return t.ocrValue(t.ocrAL, t.ocrAH)
	case topICR:
		return t.ocrValue(t.icrL, t.icrH)
	default:
		if t.width == 8 {
			return 0xFF
		}
		return 0xFFFF
	}
}

func (t *Timer) ocrValue(lo, hi uint16) uint32 {
	if t.width == 8 {
		return uint32(t.core.ReadIORaw(lo))
	}
	return uint32(t.core.ReadIORaw(lo)) | uint32(t.core.ReadIORaw(hi))<<8
}

func (t *Timer) counterValue() uint32 {
	return t.ocrValue(t.tcntL, t.tcntH)
}

func (t *Timer) setCounter(v uint32) {
	t.core.WriteIORaw(t.tcntL, byte(v))
	if t.width == 16 {
		t.core.WriteIORaw(t.tcntH, byte(v>>8))
	}
}

// PWMDutyA/PWMDutyB report the current compare-A/B duty cycle as a 0..1
// fraction of the configured top, for the session's OutputState reporting;
// they do not attempt to model the COM-bit pin-override wiring exactly.
func (t *Timer) PWMDutyA() float64 { return t.duty(t.ocrValue(t.ocrAL, t.ocrAH)) }
func (t *Timer) PWMDutyB() float64 { return t.duty(t.ocrValue(t.ocrBL, t.ocrBH)) }

// IsPWMActive reports whether this timer's current WGM bits select a PWM
// waveform (fast or phase-correct), for the pin router's output-sampling
// decision.
func (t *Timer) IsPWMActive() bool {
	mode, _ := t.decodeWGM()
	return mode == WGMFastPWM || mode == WGMPhaseCorrectPWM
}

func (t *Timer) duty(ocr uint32) float64 {
	_, topSrc := t.decodeWGM()
	top := t.topValue(topSrc)
	if top == 0 {
		return 0
	}
	return float64(ocr) / float64(top)
}

// Tick advances the timer by one CPU cycle, applying its prescaler, and
// raises OCFxA/OCFxB/TOVx in TIFR (and dispatches through ServiceInterrupts
// on the next instruction boundary) on compare match / overflow / wrap.
func (t *Timer) Tick() {
	div := t.prescaleDivisor()
	if div == 0 {
		return
	}
	t.prescaleAccum++
	if t.prescaleAccum < div {
		return
	}
	t.prescaleAccum = 0

	mode, topSrc := t.decodeWGM()
	top := t.topValue(topSrc)
	counter := t.counterValue()
	ocrA := t.ocrValue(t.ocrAL, t.ocrAH)
	ocrB := t.ocrValue(t.ocrBL, t.ocrBH)

	switch mode {
	case WGMPhaseCorrectPWM:
		counter = uint32(int64(counter) + int64(t.direction))
		if counter >= top {
			counter = top
			t.direction = -1
		} else if int64(counter) <= 0 {
			counter = 0
			t.direction = 1
			t.core.SetIOBit(t.tifr, 0, true) // TOVx at bottom
		}
	default:
		counter++
		if counter > top {
			counter = 0
			t.core.SetIOBit(t.tifr, 0, true) // TOVx
		}
	}

	if counter == ocrA {
		t.core.SetIOBit(t.tifr, 1, true)
	}
	if counter == ocrB {
		t.core.SetIOBit(t.tifr, 2, true)
	}
	t.setCounter(counter)
}
