// config.go - hierarchical TOML configuration document
//
// One struct per option group ([machine], [machine.cpu], [emulator]),
// decoded with github.com/BurntSushi/toml. Configuration errors are
// fatal at startup and surfaced before any machine is constructed.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// MachineConfig is the `[machine]` table: profile selection and
// coarse hardware options.
type MachineConfig struct {
	ConfigName     string   `toml:"config_name"`
	ConfigOverlays []string `toml:"config_overlays"`
	PreferOEM      bool     `toml:"prefer_oem"`
	ReloadROMs     bool     `toml:"reload_roms"`
	NoROMs         bool     `toml:"no_roms"`
	Turbo          bool     `toml:"turbo"`
	PITPhase       int      `toml:"pit_phase"`
}

// CPUConfig is the `[machine.cpu]` table.
type CPUConfig struct {
	WaitStates         bool   `toml:"wait_states"`
	OffRailsDetection  bool   `toml:"off_rails_detection"`
	OnHalt             string `toml:"on_halt"` // Continue | Stop | Warn
	InstructionHistory bool   `toml:"instruction_history"`
	ServiceInterrupt   bool   `toml:"service_interrupt"`
	TraceOn            bool   `toml:"trace_on"`
	TraceMode          string `toml:"trace_mode"` // Instruction | CycleText | CycleCsv | CycleSigrok
	TraceFile          string `toml:"trace_file"`
}

// EmulatorPath is one entry of `[emulator] paths[]`.
type EmulatorPath struct {
	Resource string `toml:"resource"`
	Path     string `toml:"path"`
	Recurse  bool   `toml:"recurse"`
	Create   bool   `toml:"create"`
}

// EmulatorConfig is the `[emulator]` table: host-side wiring that does
// not describe the virtual hardware itself.
type EmulatorConfig struct {
	BaseDir       string         `toml:"basedir"`
	Paths         []EmulatorPath `toml:"paths"`
	IgnoreDirs    []string       `toml:"ignore_dirs"`
	AutoPowerOn   bool           `toml:"auto_poweron"`
	CPUAutostart  bool           `toml:"cpu_autostart"`
	Headless      bool           `toml:"headless"`
	DebugMode     bool           `toml:"debug_mode"`
	DebugKeyboard bool           `toml:"debug_keyboard"`
	RunBin        string         `toml:"run_bin"`
	RunBinSeg     uint16         `toml:"run_bin_seg"`
	RunBinOfs     uint16         `toml:"run_bin_ofs"`
}

// Config is the full document: `[machine]`, `[machine.cpu]`, `[emulator]`.
// Window/scaler presets and validator/test-runner options belong to the
// host layers and are not part of this schema.
//
// CPU is kept as a sibling field here (rather than nested inside
// MachineConfig) because every caller in this module addresses it as
// cfg.CPU.*; LoadConfig below is what actually reconciles that flat
// shape against `[machine.cpu]`'s real position in the TOML document,
// which is a table nested under `[machine]`, not a field whose tag can
// just be a dotted string (BurntSushi/toml matches tags literally, it
// does not walk dotted paths).
type Config struct {
	Machine  MachineConfig  `toml:"machine"`
	CPU      CPUConfig      `toml:"-"` // decoded from [machine.cpu] separately, see LoadConfig
	Emulator EmulatorConfig `toml:"emulator"`
}

// DefaultConfig matches what a freshly power-cycled PC/XT boots with
// absent any config file: wait states on, off-rails detection on,
// halt-on-stop, no tracing.
func DefaultConfig() Config {
	return Config{
		CPU: CPUConfig{
			WaitStates:        true,
			OffRailsDetection: true,
			OnHalt:            "Stop",
			ServiceInterrupt:  true,
		},
		Emulator: EmulatorConfig{
			AutoPowerOn:  true,
			CPUAutostart: true,
		},
	}
}

// LoadConfig reads and decodes a TOML document, applying it over the
// supplied cfg (typically DefaultConfig). The caller decides whether a
// missing file is fatal; an explicitly named --config that doesn't
// exist should be.
//
// [machine.cpu] is a table nested under [machine] in the document but
// Config.CPU is a sibling field, so decoding happens in two passes over
// the same document: the first fills Machine/Emulator directly, the
// second targets a throwaway wrapper shaped to match [machine.cpu]'s
// real nesting and is seeded with cfg.CPU's current value first, so a
// field the document never mentions keeps whatever default it already
// held (BurntSushi/toml only overwrites keys actually present).
func LoadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	var nested struct {
		Machine struct {
			CPU CPUConfig `toml:"cpu"`
		} `toml:"machine"`
	}
	nested.Machine.CPU = cfg.CPU
	if _, err := toml.Decode(string(data), &nested); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.CPU = nested.Machine.CPU

	return nil
}

// HaltPolicyFromString maps the `on_halt` config string onto eu.go's
// HaltPolicy, defaulting to Stop for any unrecognized value — an enum
// typo here is not worth refusing to boot over, and Stop is the safe
// direction to fail in.
func HaltPolicyFromString(s string) HaltPolicy {
	switch s {
	case "Continue":
		return HaltPolicyContinue
	case "Warn":
		return HaltPolicyWarn
	default:
		return HaltPolicyStop
	}
}

func TraceModeFromString(s string) TraceMode {
	switch s {
	case "Instruction":
		return TraceInstruction
	case "CycleText":
		return TraceCycleText
	case "CycleCsv":
		return TraceCycleCsv
	case "CycleSigrok":
		return TraceCycleSigrok
	default:
		return TraceNone
	}
}
