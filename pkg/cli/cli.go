// Package cli parses the arguments for the carbon-sim headless harness.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings parsed from command-line arguments and their
// environment-variable fallbacks.
type Config struct {
	SongPath   string        // path to a song blob to load at startup, empty means a blank song
	ClockSrc   string        // "internal", "midi", or "auto"
	Tempo      float64       // initial internal tempo in BPM, used when ClockSrc == "internal"
	Timeout    time.Duration // stop the simulator after this long, 0 means run forever
	LogLevel   string        // "debug", "info", "warn", or "error"
	Headless   bool          // suppress the transcript of outgoing messages
	ShowHelp   bool
}

// ParseArgs parses command-line arguments into a Config, applying
// environment-variable fallbacks (CARBON_CLOCK_SRC, TIMEOUT, LOG_LEVEL,
// HEADLESS) wherever the corresponding flag was left at its
// default.
func ParseArgs(args []string) (*Config, error) {
	reordered := reorderArgs(args)

	fs := flag.NewFlagSet("carbon-sim", flag.ContinueOnError)

	config := &Config{}

	var timeoutSec int
	fs.IntVar(&timeoutSec, "timeout", 0, "stop after N seconds (0 = unlimited)")
	fs.IntVar(&timeoutSec, "t", 0, "stop after N seconds (shorthand)")
	fs.StringVar(&config.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&config.LogLevel, "l", "info", "log level (shorthand)")
	fs.StringVar(&config.ClockSrc, "clock", "internal", "clock source: internal, midi, auto")
	fs.Float64Var(&config.Tempo, "tempo", 120.0, "initial internal tempo in BPM")
	fs.StringVar(&config.SongPath, "song", "", "path to a song blob to load at startup")
	fs.BoolVar(&config.Headless, "headless", false, "suppress the outgoing message transcript")
	fs.BoolVar(&config.ShowHelp, "help", false, "show this help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show this help (shorthand)")

	if err := fs.Parse(reordered); err != nil {
		return nil, err
	}

	if !config.Headless {
		if v := os.Getenv("HEADLESS"); v != "" {
			config.Headless = v == "1" || strings.ToLower(v) == "true"
		}
	}

	if timeoutSec == 0 {
		if v := os.Getenv("TIMEOUT"); v != "" {
			if t, err := strconv.Atoi(v); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	if config.LogLevel == "info" {
		if v := os.Getenv("LOG_LEVEL"); v != "" {
			config.LogLevel = strings.ToLower(v)
		}
	}

	if config.ClockSrc == "internal" {
		if v := os.Getenv("CARBON_CLOCK_SRC"); v != "" {
			config.ClockSrc = strings.ToLower(v)
		}
	}

	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	validClockSrc := map[string]bool{"internal": true, "midi": true, "auto": true}
	if !validClockSrc[config.ClockSrc] {
		return nil, fmt.Errorf("invalid clock source: %s (must be internal, midi, or auto)", config.ClockSrc)
	}

	if config.Tempo < 30 || config.Tempo > 300 {
		return nil, fmt.Errorf("tempo out of range: %v (must be 30..300 BPM)", config.Tempo)
	}

	return config, nil
}

// reorderArgs moves flags ahead of positional arguments so flag.FlagSet,
// which stops parsing at the first non-flag token, sees every flag.
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				if arg != "-h" && arg != "--help" && arg != "--headless" {
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp writes the carbon-sim usage message to stdout.
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `carbon-sim - headless CARBON sequencer core simulator

Usage:
  carbon-sim [options]

Options:
  -t, --timeout <seconds>   stop after N seconds (default: unlimited)
  -l, --log-level <level>   log level: debug, info, warn, error (default: info)
  --clock <source>          clock source: internal, midi, auto (default: internal)
  --tempo <bpm>             initial internal tempo, 30..300 (default: 120)
  --song <path>             song blob to load at startup (default: blank song)
  --headless                suppress the outgoing message transcript
  -h, --help                show this help

Environment Variables:
  HEADLESS=1                suppress the outgoing message transcript
  TIMEOUT=<seconds>         stop after N seconds
  LOG_LEVEL=<level>         log level
  CARBON_CLOCK_SRC=<source> clock source

Examples:
  carbon-sim --tempo 140
  carbon-sim --clock midi --log-level debug
  carbon-sim --song patterns/demo.song --timeout 30
`)
}
