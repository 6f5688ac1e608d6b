package mcuavr

// Register addresses are absolute data-space addresses (as used by IN/OUT/
// LDS/STS), matching the real ATmega328P/ATmega2560 I/O maps closely enough
// to drive the peripheral engine. General registers occupy 0..31, I/O
// occupies 32..(profile.IOBytes-1), SRAM begins at profile.IOBytes.
const (
	RegSREG = 0x5F
	RegSPL  = 0x5D
	RegSPH  = 0x5E

	RegPINB = 0x23
	RegDDRB = 0x24
	RegPORTB = 0x25
	RegPINC = 0x26
	RegDDRC = 0x27
	RegPORTC = 0x28
	RegPIND = 0x29
	RegDDRD = 0x2A
	RegPORTD = 0x2B

	RegTIFR0 = 0x35
	RegTIFR1 = 0x36
	RegTIFR2 = 0x37
	RegPCIFR = 0x3B
	RegEIFR  = 0x3C
	RegEIMSK = 0x3D

	RegWDTCSR = 0x60
	RegPCICR  = 0x68
	RegEICRA  = 0x69
	RegPCMSK0 = 0x6B
	RegPCMSK1 = 0x6C
	RegPCMSK2 = 0x6D
	RegTIMSK0 = 0x6E
	RegTIMSK1 = 0x6F
	RegTIMSK2 = 0x70

	RegADCL   = 0x78
	RegADCH   = 0x79
	RegADCSRA = 0x7A
	RegADCSRB = 0x7B
	RegADMUX  = 0x7C

	RegTCCR0A = 0x44
	RegTCCR0B = 0x45
	RegTCNT0  = 0x46
	RegOCR0A  = 0x47
	RegOCR0B  = 0x48

	RegTCCR1A = 0x80
	RegTCCR1B = 0x81
	RegTCCR1C = 0x82
	RegTCNT1L = 0x84
	RegTCNT1H = 0x85
	RegICR1L  = 0x86
	RegICR1H  = 0x87
	RegOCR1AL = 0x88
	RegOCR1AH = 0x89
	RegOCR1BL = 0x8A
	RegOCR1BH = 0x8B

	RegTCCR2A = 0xB0
	RegTCCR2B = 0xB1
	RegTCNT2  = 0xB2
	RegOCR2A  = 0xB3
	RegOCR2B  = 0xB4

	RegTWBR = 0xB8
	RegTWSR = 0xB9
	RegTWAR = 0xBA
	RegTWDR = 0xBB
	RegTWCR = 0xBC

	RegSPCR = 0x4C
	RegSPSR = 0x4D
	RegSPDR = 0x4E

	RegUCSR0A = 0xC0
	RegUCSR0B = 0xC1
	RegUCSR0C = 0xC2
	RegUBRR0L = 0xC4
	RegUBRR0H = 0xC5
	RegUDR0   = 0xC6

	// ATmega2560-only extensions: timers 3/4/5, UARTs 1/2/3, ports A/E/G/H/J/L.
	RegPINA  = 0x20
	RegDDRA  = 0x21
	RegPORTA = 0x22
	RegPINE  = 0x2C
	RegDDRE  = 0x2D
	RegPORTE = 0x2E
	RegPINF  = 0x2F
	RegDDRF  = 0x30
	RegPORTF = 0x31
	RegPING  = 0x32
	RegDDRG  = 0x33
	RegPORTG = 0x34
	RegPINH  = 0x100
	RegDDRH  = 0x101
	RegPORTH = 0x102
	RegPINJ  = 0x103
	RegDDRJ  = 0x104
	RegPORTJ = 0x105
	RegPINK  = 0x106
	RegDDRK  = 0x107
	RegPORTK = 0x108
	RegPINL  = 0x109
	RegDDRL  = 0x10A
	RegPORTL = 0x10B

	RegTIFR3 = 0x38
	RegTIFR4 = 0x39
	RegTIFR5 = 0x3A
	RegTIMSK3 = 0x71
	RegTIMSK4 = 0x72
	RegTIMSK5 = 0x73
	RegEIMSK2 = 0x3D // INT0-7 on the 2560 share EIMSK/EIFR; INT4/5 are bits 4/5.

	RegTCCR3A = 0x90
	RegTCCR3B = 0x91
	RegTCNT3L = 0x94
	RegTCNT3H = 0x95
	RegICR3L  = 0x96
	RegICR3H  = 0x97
	RegOCR3AL = 0x98
	RegOCR3AH = 0x99
	RegOCR3BL = 0x9A
	RegOCR3BH = 0x9B

	RegTCCR4A = 0xA0
	RegTCCR4B = 0xA1
	RegTCNT4L = 0xA4
	RegTCNT4H = 0xA5
	RegICR4L  = 0xA6
	RegICR4H  = 0xA7
	RegOCR4AL = 0xA8
	RegOCR4AH = 0xA9
	RegOCR4BL = 0xAA
	RegOCR4BH = 0xAB

	RegTCCR5A = 0x120
	RegTCCR5B = 0x121
	RegTCNT5L = 0x124
	RegTCNT5H = 0x125
	RegICR5L  = 0x126
	RegICR5H  = 0x127
	RegOCR5AL = 0x128
	RegOCR5AH = 0x129
	RegOCR5BL = 0x12A
	RegOCR5BH = 0x12B

	RegUCSR1A = 0xC8
	RegUCSR1B = 0xC9
	RegUCSR1C = 0xCA
	RegUBRR1L = 0xCC
	RegUBRR1H = 0xCD
	RegUDR1   = 0xCE

	RegUCSR2A = 0xD0
	RegUCSR2B = 0xD1
	RegUCSR2C = 0xD2
	RegUBRR2L = 0xD4
	RegUBRR2H = 0xD5
	RegUDR2   = 0xD6

	RegUCSR3A = 0x130
	RegUCSR3B = 0x131
	RegUCSR3C = 0x132
	RegUBRR3L = 0x134
	RegUBRR3H = 0x135
	RegUDR3   = 0x136

	RegPCMSK2Ext = 0x6D
)

// SREG bit positions.
const (
	SREGBitC = 0
	SREGBitZ = 1
	SREGBitN = 2
	SREGBitV = 3
	SREGBitS = 4
	SREGBitH = 5
	SREGBitT = 6
	SREGBitI = 7
)

// Interrupt vectors, shared between families for the vectors both implement.
// These match the word offsets the original engine's AVR_CheckInterrupts
// uses for the timer/USART/ADC group; the surrounding vectors (external,
// pin-change, SPI, TWI, WDT) are assigned into the unclaimed slots that
// scheme leaves between RESET and Timer2, and after ADC.
const (
	VecINT0        = 0x02
	VecINT1        = 0x03
	VecPCINT0      = 0x04
	VecPCINT1      = 0x05
	VecPCINT2      = 0x06
	VecTimer2CompA = 0x07
	VecTimer2CompB = 0x08
	VecTimer2Ovf   = 0x09
	VecTimer1Capt  = 0x0A
	VecTimer1CompA = 0x0B
	VecTimer1CompB = 0x0C
	VecTimer1Ovf   = 0x0D
	VecTimer0CompA = 0x0E
	VecTimer0CompB = 0x0F
	VecTimer0Ovf   = 0x10
	VecSPI         = 0x11
	VecUSART0RXC   = 0x12
	VecUSART0DRE   = 0x13
	VecUSART0TXC   = 0x14
	VecADC         = 0x15
	VecWDT         = 0x16
	VecTWI         = 0x18

	// ATmega2560-only extensions: six timers, four UARTs, eight external
	// interrupts. Assigned into a private range above the shared vectors
	// so the two families never collide when sharing one dispatch table.
	VecINT2         = 0x40
	VecINT3         = 0x41
	VecINT4         = 0x42
	VecINT5         = 0x43
	VecINT6         = 0x44
	VecINT7         = 0x45
	VecTimer3CompA  = 0x46
	VecTimer3CompB  = 0x47
	VecTimer3CompC  = 0x48
	VecTimer3Ovf    = 0x49
	VecTimer4CompA  = 0x4A
	VecTimer4CompB  = 0x4B
	VecTimer4CompC  = 0x4C
	VecTimer4Ovf    = 0x4D
	VecTimer5CompA  = 0x4E
	VecTimer5CompB  = 0x4F
	VecTimer5CompC  = 0x50
	VecTimer5Ovf    = 0x51
	VecUSART1RXC    = 0x52
	VecUSART1DRE    = 0x53
	VecUSART1TXC    = 0x54
	VecUSART2RXC    = 0x55
	VecUSART2DRE    = 0x56
	VecUSART2TXC    = 0x57
	VecUSART3RXC    = 0x58
	VecUSART3DRE    = 0x59
	VecUSART3TXC    = 0x5A
)
