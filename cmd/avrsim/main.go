// Command avrsim runs the AVR core as a standalone lockstep server, or
// exercises its own peripherals in a quick self-test, the same thin
// cobra-driven entry point shape this corpus's other command-line tools use
// to wire flags onto an otherwise self-contained library.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"
	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/peripherals"
	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/server"
	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/session"
	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/stk500"
	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/trace"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "avrsim",
		Short: "Cycle-accurate ATmega328P/2560 emulator, driven over a lockstep pipe",
	}

	var (
		pipeName     string
		cpuHzOverride float64
		mode         string
		traceOpcodes bool
		traceLockstep bool
		stk500Port   string
		stk500Baud   int
		boardID      string
		eepromDir    string
		rpiShm       string
		debug        bool
	)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Attach to a named pipe and serve the lockstep protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pipeName == "" {
				return fmt.Errorf("--pipe is required")
			}
			if mode != "lockstep" && mode != "realtime" {
				return fmt.Errorf("--mode must be lockstep or realtime, got %q", mode)
			}
			if rpiShm != "" && debug {
				fmt.Fprintf(os.Stderr, "avrsim: rpi side-channel %q requested but not implemented by this core; ignoring\n", rpiShm)
			}

			conn, err := os.OpenFile(pipeName, os.O_RDWR, 0)
			if err != nil {
				return fmt.Errorf("avrsim: failed to open pipe %s: %w", pipeName, err)
			}
			defer conn.Close()

			registry := session.NewRegistry(eepromDir, 1)
			registry.Debug = debug

			if boardID != "" && cpuHzOverride > 0 {
				profile := mcuavr.LookupBoardProfile(boardID)
				profile.ClockHz = cpuHzOverride
				registry.EnsureProfile(boardID, profile)
			}

			if stk500Port != "" {
				go serveSTK500(stk500Port, stk500Baud, boardID, registry, debug)
			}

			srv := server.New(conn, registry)
			srv.Debug = debug

			if traceOpcodes || traceLockstep {
				// The trace flags attach nothing: sessions are created
				// lazily per board id inside the registry, and no trace
				// ring is handed to them from here.
				_ = trace.NewRing(4096)
			}

			if err := srv.Run(); err != nil {
				return fmt.Errorf("avrsim: server exited: %w", err)
			}
			return nil
		},
	}
	serveCmd.Flags().StringVar(&pipeName, "pipe", "", "Path to the named-pipe transport (required)")
	serveCmd.Flags().Float64Var(&cpuHzOverride, "cpu-hz", 0, "Override the board profile's clock rate")
	serveCmd.Flags().StringVar(&mode, "mode", "lockstep", "Stepping mode: lockstep or realtime")
	serveCmd.Flags().BoolVar(&traceOpcodes, "trace-opcodes", false, "Opcode trace flag (accepted; attaches no trace ring to sessions)")
	serveCmd.Flags().BoolVar(&traceLockstep, "trace-lockstep", false, "Lockstep trace flag (accepted; logs nothing)")
	serveCmd.Flags().StringVar(&stk500Port, "stk500-port", "", "Serial device path for the STK500 programmer bridge")
	serveCmd.Flags().IntVar(&stk500Baud, "stk500-baud", 115200, "Baud rate for the STK500 serial transport")
	serveCmd.Flags().StringVar(&boardID, "board-id", "", "Board identity for the STK500 bridge session; with --cpu-hz, also pre-provisioned at that clock before the first Hello")
	serveCmd.Flags().StringVar(&eepromDir, "eeprom-dir", "", "Directory for per-board EEPROM persistence files")
	serveCmd.Flags().StringVar(&rpiShm, "rpi-shm", "", "Raspberry-Pi side-channel shared-memory name (contract only)")
	serveCmd.Flags().BoolVar(&debug, "debug", false, "Verbose diagnostic logging")

	selfTestCmd := &cobra.Command{
		Use:   "self-test",
		Short: "Build a 328P profile and exercise ADC/UART/timer/SPI/TWI",
		RunE: func(cmd *cobra.Command, args []string) error {
			results := runSelfTest()
			failed := 0
			for _, r := range results {
				status := "PASS"
				if !r.ok {
					status = "FAIL"
					failed++
				}
				fmt.Printf("[%s] %s\n", status, r.name)
				if !r.ok && r.detail != "" {
					fmt.Printf("       %s\n", r.detail)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d/%d self-tests failed", failed, len(results))
			}
			fmt.Printf("%d/%d self-tests passed\n", len(results), len(results))
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd, selfTestCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveSTK500(port string, baud int, boardID string, registry *session.Registry, debug bool) {
	sp, err := stk500.OpenSerialPort(port, baud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "avrsim: stk500 bridge disabled: %v\n", err)
		return
	}
	defer sp.Close()

	id := boardID
	if id == "" {
		id = "stk500-default"
	}
	sess := registry.Get(id)
	sess.Debug = debug

	bridge := stk500.New(sp, sess)
	if err := bridge.Serve(); err != nil && debug {
		fmt.Fprintf(os.Stderr, "avrsim: stk500 bridge ended: %v\n", err)
	}
}

type selfTestResult struct {
	name   string
	ok     bool
	detail string
}

// runSelfTest exercises each peripheral directly against its register
// interface, the same register-poke-then-tick shape this package's own
// unit tests use, bundled here as a standalone operator-facing health
// check rather than a go test target.
func runSelfTest() []selfTestResult {
	var results []selfTestResult

	results = append(results, selfTestTimer())
	results = append(results, selfTestUART())
	results = append(results, selfTestADC())
	results = append(results, selfTestSPI())
	results = append(results, selfTestTWI())

	return results
}

func selfTestTimer() selfTestResult {
	core := mcuavr.NewCore(mcuavr.DefaultBoardProfile())
	eng := peripherals.NewEngine(core, 1)
	core.WriteIORaw(mcuavr.RegTCCR0B, 0x01)
	for i := 0; i < 257; i++ {
		eng.Timers[0].Tick()
	}
	if !core.IOBit(mcuavr.RegTIFR0, 0) {
		return selfTestResult{name: "timer0 overflow", ok: false, detail: "TOV0 not set after 256 ticks"}
	}
	return selfTestResult{name: "timer0 overflow", ok: true}
}

func selfTestUART() selfTestResult {
	core := mcuavr.NewCore(mcuavr.DefaultBoardProfile())
	eng := peripherals.NewEngine(core, 1)
	u := eng.UARTs[0]
	core.WriteIORaw(mcuavr.RegUCSR0B, 0x18)
	core.WriteIORaw(mcuavr.RegUBRR0L, 0)
	core.WriteIORaw(mcuavr.RegUBRR0H, 0)
	core.WriteData(mcuavr.RegUDR0, 0x41)

	cycles := u.ByteCycles()
	for i := int64(0); i < cycles+1; i++ {
		u.Tick()
	}
	out := u.DrainTransmitted()
	if len(out) != 1 || out[0] != 0x41 {
		return selfTestResult{name: "uart0 loopback", ok: false, detail: fmt.Sprintf("expected [0x41], got %v", out)}
	}
	return selfTestResult{name: "uart0 loopback", ok: true}
}

func selfTestADC() selfTestResult {
	core := mcuavr.NewCore(mcuavr.DefaultBoardProfile())
	eng := peripherals.NewEngine(core, 1)
	eng.ADC.NoiseAmplitude = 0
	core.AnalogInputs[0] = 2.5
	core.WriteData(mcuavr.RegADCSRA, 0x40)
	for i := 0; i < 13*2+1; i++ {
		eng.ADC.Tick()
	}
	lo := core.ReadIORaw(mcuavr.RegADCL)
	hi := core.ReadIORaw(mcuavr.RegADCH)
	result := int(lo) | int(hi)<<8
	if result < 500 || result > 524 {
		return selfTestResult{name: "adc mid-scale conversion", ok: false, detail: fmt.Sprintf("expected ~512, got %d", result)}
	}
	return selfTestResult{name: "adc mid-scale conversion", ok: true}
}

func selfTestSPI() selfTestResult {
	core := mcuavr.NewCore(mcuavr.DefaultBoardProfile())
	eng := peripherals.NewEngine(core, 1)
	core.WriteIORaw(mcuavr.RegSPCR, 0x50) // SPE|MSTR
	core.WriteData(mcuavr.RegSPDR, 0xAA)
	for i := 0; i < 8*4+1; i++ { // 8 bits at the default fosc/4 clock
		eng.SPI.Tick()
	}
	if !core.IOBit(mcuavr.RegSPSR, 7) {
		return selfTestResult{name: "spi transfer", ok: false, detail: "SPIF not set after transfer"}
	}
	return selfTestResult{name: "spi transfer", ok: true}
}

func selfTestTWI() selfTestResult {
	core := mcuavr.NewCore(mcuavr.DefaultBoardProfile())
	eng := peripherals.NewEngine(core, 1)
	core.WriteIORaw(mcuavr.RegTWBR, 72)
	core.WriteData(mcuavr.RegTWDR, 0xA0)
	core.WriteData(mcuavr.RegTWCR, 0xA4) // TWINT|TWEN|TWSTA
	for i := 0; i < 9*(16+2*72)+1; i++ { // 9 bit times at TWBR=72, prescaler 1
		eng.TWI.Tick()
	}
	if eng.TWI.Transfers == 0 {
		return selfTestResult{name: "twi start condition", ok: false, detail: "no transfer completed"}
	}
	return selfTestResult{name: "twi start condition", ok: true}
}
