package peripherals

import "github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"

var adcPrescalerTable = [8]int{2, 2, 4, 8, 16, 32, 64, 128}

// ADC models the successive-approximation converter: channel selection via
// ADMUX/ADCSRB, prescaled conversion timing, and deterministic read noise
// so the same input trace reproduces identical results across replays.
type ADC struct {
	core *mcuavr.Core
	rng  *lcg

	converting        bool
	cyclesRemaining   int64
	channel           int

	// Samples counts completed conversions, for the session's perf
	// counters.
	Samples uint64

	// NoiseAmplitude is added (before rounding) as +/- NoiseAmplitude*rng
	// LSBs to the ideal 10-bit conversion result, modeling reference noise.
	NoiseAmplitude float64
}

// NewADC wires ADCL/ADCH/ADCSRA/ADCSRB/ADMUX into the core.
func NewADC(core *mcuavr.Core, seed uint64) *ADC {
	a := &ADC{core: core, rng: newLCG(seed), NoiseAmplitude: 0.5}
	core.RegisterWriteHook(mcuavr.RegADCSRA, func(c *mcuavr.Core, addr uint16, v byte) byte {
		adifStaysSet := c.IO[addr]&0x10 != 0 && v&0x10 == 0 // ADIF write-1-to-clear
		next := v &^ 0x10
		if adifStaysSet {
			next |= 0x10
		}
		if v&0x40 != 0 && !a.converting { // ADSC newly set: start a conversion
			a.startConversion(v)
		}
		return next
	})
	return a
}

func (a *ADC) muxChannel() int {
	mux := int(a.core.ReadIORaw(mcuavr.RegADMUX) & 0x0F)
	if a.core.ReadIORaw(mcuavr.RegADCSRB)&0x08 != 0 { // MUX5 (2560 extended channels)
		mux += 16
	}
	return mux
}

func (a *ADC) startConversion(adcsra byte) {
	a.converting = true
	a.channel = a.muxChannel()
	cs := adcsra & 0x07
	div := adcPrescalerTable[cs]
	a.cyclesRemaining = int64(13 * div) // 13 ADC clocks per conversion
}

// Tick advances an in-flight conversion by one CPU cycle, completing it and
// latching ADCL/ADCH plus ADIF when the conversion time elapses.
func (a *ADC) Tick() {
	if !a.converting {
		return
	}
	a.cyclesRemaining--
	if a.cyclesRemaining > 0 {
		return
	}
	a.converting = false

	var voltage float32
	if a.channel >= 0 && a.channel < len(a.core.AnalogInputs) {
		voltage = a.core.AnalogInputs[a.channel]
	}
	ideal := float64(voltage) / 5.0 * 1023.0 // 5 V reference
	noisy := ideal + (a.rng.nextFloat()*2-1)*a.NoiseAmplitude
	result := int(noisy + 0.5)
	if result < 0 {
		result = 0
	}
	if result > 1023 {
		result = 1023
	}

	if a.core.IOBit(mcuavr.RegADMUX, 5) { // ADLAR: left-adjust result
		a.core.WriteIORaw(mcuavr.RegADCH, byte(result>>2))
		a.core.WriteIORaw(mcuavr.RegADCL, byte(result<<6))
	} else {
		a.core.WriteIORaw(mcuavr.RegADCL, byte(result))
		a.core.WriteIORaw(mcuavr.RegADCH, byte(result>>8))
	}
	a.core.SetIOBit(mcuavr.RegADCSRA, 4, true) // ADIF
	a.core.SetIOBit(mcuavr.RegADCSRA, 6, false) // ADSC clears on completion
	a.Samples++
}
