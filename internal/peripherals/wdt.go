package peripherals

import "github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"

// wdtTimeoutSeconds maps the 4-bit WDP3:WDP2:WDP1:WDP0 field to its nominal
// timeout, the same ten-entry table real ATmega watchdogs use.
var wdtTimeoutSeconds = [10]float64{0.016, 0.032, 0.064, 0.128, 0.256, 0.512, 1, 2, 4, 8}

// WDT models the watchdog timer as a periodic countdown-then-fire device,
// the same shape as the teacher's CMOS RTC periodic-interrupt tick: arm a
// cycle countdown from a configured period, and act when it reaches zero.
type WDT struct {
	core            *mcuavr.Core
	cyclesRemaining int64
	armed           bool

	// Resets counts system resets the watchdog has forced, for the
	// session's perf counters.
	Resets uint64
}

// NewWDT wires WDTCSR into the core and the WDR instruction's reset hook.
func NewWDT(core *mcuavr.Core) *WDT {
	w := &WDT{core: core}
	core.RegisterWriteHook(mcuavr.RegWDTCSR, func(c *mcuavr.Core, addr uint16, v byte) byte {
		cur := c.IO[addr]
		wdifStaysSet := cur&0x80 != 0 && v&0x80 == 0
		next := v
		if wdifStaysSet {
			next |= 0x80
		} else {
			next &^= 0x80
		}
		w.rearm(next)
		return next
	})
	core.OnWatchdogReset = func() {
		w.rearm(core.ReadIORaw(mcuavr.RegWDTCSR))
	}
	return w
}

func (w *WDT) period() float64 {
	csr := w.core.ReadIORaw(mcuavr.RegWDTCSR)
	wdp := (csr & 0x07) | (csr>>2)&0x08
	if int(wdp) >= len(wdtTimeoutSeconds) {
		wdp = uint8(len(wdtTimeoutSeconds) - 1)
	}
	return wdtTimeoutSeconds[wdp]
}

func (w *WDT) rearm(csr byte) {
	if csr&0x08 == 0 && csr&0x40 == 0 { // neither WDE nor WDIE: watchdog disabled
		w.armed = false
		return
	}
	w.armed = true
	w.cyclesRemaining = int64(w.period() * w.core.Profile.ClockHz)
}

// Tick counts down the watchdog; on expiry it raises WDIF (interrupt mode)
// or performs a reset (system-reset mode), matching the real part's
// interrupt-then-reset escalation when both WDIE and WDE are set.
func (w *WDT) Tick() {
	if !w.armed {
		return
	}
	w.cyclesRemaining--
	if w.cyclesRemaining > 0 {
		return
	}
	csr := w.core.ReadIORaw(mcuavr.RegWDTCSR)
	switch {
	case csr&0x40 != 0: // WDIE set: fire interrupt, hardware clears WDIE after
		w.core.SetIOBit(mcuavr.RegWDTCSR, 7, true) // WDIF
		w.core.SetIOBit(mcuavr.RegWDTCSR, 6, false)
		w.rearm(w.core.ReadIORaw(mcuavr.RegWDTCSR))
	case csr&0x08 != 0: // WDE set, no pending interrupt: system reset
		w.core.SoftReset()
		w.armed = false
		w.Resets++
	default:
		w.armed = false
	}
}
