// main.go - xtcycle CLI entry point
//
// cobra subcommands: `run` powers the machine on and drives it for a
// bounded cycle window; `trace-convert` reshapes an existing CycleCsv
// trace into the PulseView-importable sigrok format. Fatal config/ROM
// errors exit here with a message; nothing below this file ever
// panics on guest-induced conditions.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "xtcycle",
	Short: "A cycle-accurate IBM PC/XT (8088) emulator core",
}

func main() {
	rootCmd.AddCommand(runCmd, traceConvertCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	flagConfigPath string
	flagROMPath    string
	flagROMBase    uint32
	flagVideo      string
	flagHeadless   bool
	flagCycles     uint64
	flagRunBin     string
	flagRunBinSeg  uint16
	flagRunBinOfs  uint16
	flagTraceOn    bool
	flagTraceMode  string
	flagTraceFile  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Power on the machine and run it for a bounded number of cycles",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&flagConfigPath, "config", "", "path to a TOML config document")
	runCmd.Flags().StringVar(&flagROMPath, "rom", "", "raw BIOS ROM image, mapped ending at the reset vector")
	runCmd.Flags().Uint32Var(&flagROMBase, "rom-base", 0xFE000, "physical base address the ROM image is mapped at")
	runCmd.Flags().StringVar(&flagVideo, "video", "cga", "video adapter: mda|cga|ega")
	runCmd.Flags().BoolVar(&flagHeadless, "headless", false, "read host keystrokes from a raw-mode stdin console")
	runCmd.Flags().Uint64Var(&flagCycles, "cycles", 0, "cycle budget for run_for; 0 runs until halt")
	runCmd.Flags().StringVar(&flagRunBin, "run-bin", "", "load a raw binary and redirect the reset vector to it")
	runCmd.Flags().Uint16Var(&flagRunBinSeg, "run-bin-seg", 0x1000, "run_bin_seg")
	runCmd.Flags().Uint16Var(&flagRunBinOfs, "run-bin-ofs", 0x0000, "run_bin_ofs")
	runCmd.Flags().BoolVar(&flagTraceOn, "trace", false, "enable tracing")
	runCmd.Flags().StringVar(&flagTraceMode, "trace-mode", "Instruction", "Instruction|CycleText|CycleCsv|CycleSigrok")
	runCmd.Flags().StringVar(&flagTraceFile, "trace-file", "", "trace output path; required when --trace is set")
}

func videoKindFromFlag(s string) VideoKind {
	switch s {
	case "mda":
		return VideoMDA
	case "ega":
		return VideoEGA
	default:
		return VideoCGA
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := DefaultConfig()
	if flagConfigPath != "" {
		if err := LoadConfig(flagConfigPath, &cfg); err != nil {
			return err // configuration errors are fatal at startup
		}
	}
	if flagHeadless {
		cfg.Emulator.Headless = true
	}

	m := NewMachine(cfg, videoKindFromFlag(flagVideo))

	if flagROMPath != "" {
		data, err := os.ReadFile(flagROMPath)
		if err != nil {
			if !cfg.Machine.NoROMs {
				return fmt.Errorf("rom: %w", err) // fatal unless no_roms is set
			}
			logf("no_roms set, ignoring ROM load error: %v", err)
		} else {
			m.MapROM(flagROMBase, data)
		}
	}

	if cfg.Emulator.Headless {
		console := NewHeadlessConsole(m.Keyboard, cfg.Emulator.DebugKeyboard)
		console.Start()
		defer console.Stop()
	}

	if !cfg.Emulator.AutoPowerOn {
		logf("auto_poweron is disabled; machine constructed but not started")
		return nil
	}
	m.PowerOn()

	runBin, runBinSeg, runBinOfs := flagRunBin, flagRunBinSeg, flagRunBinOfs
	if runBin == "" && cfg.Emulator.RunBin != "" {
		runBin, runBinSeg, runBinOfs = cfg.Emulator.RunBin, cfg.Emulator.RunBinSeg, cfg.Emulator.RunBinOfs
	}
	if runBin != "" {
		data, err := os.ReadFile(runBin)
		if err != nil {
			return fmt.Errorf("run-bin: %w", err)
		}
		m.SetRunBin(data, runBinSeg, runBinOfs)
	}

	traceOn, traceMode, traceFile := flagTraceOn, flagTraceMode, flagTraceFile
	if !traceOn && cfg.CPU.TraceOn {
		traceOn, traceMode, traceFile = true, cfg.CPU.TraceMode, cfg.CPU.TraceFile
	}
	if traceOn {
		if traceFile == "" {
			return fmt.Errorf("a trace file path is required when tracing is enabled")
		}
		f, err := os.Create(traceFile)
		if err != nil {
			// Trace I/O errors disable tracing and surface a notification
			// rather than aborting the run.
			logf("trace: %v; tracing disabled", err)
		} else {
			defer f.Close()
			tw := NewTraceWriter(TraceModeFromString(traceMode), f, NewDisassembler(m.Bus))
			defer tw.Flush()
			m.SetTrace(tw)
		}
	}

	cycles := flagCycles
	if cycles == 0 {
		cycles = 1 << 40 // effectively unbounded; Halted() still ends the run early
	}
	if cfg.Emulator.CPUAutostart {
		m.RunFor(cycles)
	} else {
		logf("cpu_autostart is disabled; machine powered on but the CPU was not run")
	}

	if m.Halted() && HaltPolicyFromString(cfg.CPU.OnHalt) == HaltPolicyStop {
		os.Exit(1) // non-zero on unrecoverable halt
	}
	return nil
}

var traceConvertCmd = &cobra.Command{
	Use:   "trace-convert <cyclecsv-file> <sigrok-file>",
	Short: "Convert a CycleCsv trace into the CycleSigrok PulseView-importable format",
	Args:  cobra.ExactArgs(2),
	RunE:  runTraceConvert,
}

// busStatusFromName reverses busStatusName (trace.go) so trace-convert
// can recover the original BusStatus enum from a CycleCsv row's text
// column well enough to re-derive the sigrok columns.
func busStatusFromName(name string) BusStatus {
	switch name {
	case "INTA":
		return BusStatusInterruptAck
	case "IOR":
		return BusStatusReadIO
	case "IOW":
		return BusStatusWriteIO
	case "HALT":
		return BusStatusHalt
	case "FETCH":
		return BusStatusInstructionFetch
	case "MEMR":
		return BusStatusReadMemory
	case "MEMW":
		return BusStatusWriteMemory
	default:
		return BusStatusPassive
	}
}

// runTraceConvert reads a trace.go CycleCsv file ("cycle,addr,status,
// cs,ip" per line) and re-emits it as CycleSigrok rows against the
// sigrokImportString schema. The IF-flag column is not recoverable from
// CycleCsv's narrower schema and is written as 0; a run that needs it
// should record CycleSigrok directly.
func runTraceConvert(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(args[1])
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	defer w.Flush()
	fmt.Fprintf(w, "; sigrok CSV import string: %s\n", sigrokImportString)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 5 {
			continue
		}
		cycle, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		addr, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			continue
		}
		status := busStatusFromName(fields[2])
		rw := 0
		if status == BusStatusWriteMemory || status == BusStatusWriteIO {
			rw = 1
		}
		fmt.Fprintf(w, "%d,%05X,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d\n",
			cycle, addr, rw, 0, int(status)&0x3, (int(status)>>2)&0x7, 0, 0, 0, 0, 0, 0)
	}
	return scanner.Err()
}
