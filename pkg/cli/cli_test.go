package cli

import (
	"os"
	"testing"
	"time"
)

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name: "defaults",
			args: []string{},
			expected: Config{
				Timeout:  0,
				LogLevel: "info",
				ClockSrc: "internal",
				Tempo:    120.0,
				Headless: false,
				ShowHelp: false,
			},
		},
		{
			name: "timeout",
			args: []string{"--timeout", "10"},
			expected: Config{
				Timeout:  10 * time.Second,
				LogLevel: "info",
				ClockSrc: "internal",
				Tempo:    120.0,
			},
		},
		{
			name: "timeout shorthand",
			args: []string{"-t", "5"},
			expected: Config{
				Timeout:  5 * time.Second,
				LogLevel: "info",
				ClockSrc: "internal",
				Tempo:    120.0,
			},
		},
		{
			name: "log level",
			args: []string{"--log-level", "debug"},
			expected: Config{
				LogLevel: "debug",
				ClockSrc: "internal",
				Tempo:    120.0,
			},
		},
		{
			name: "log level shorthand",
			args: []string{"-l", "error"},
			expected: Config{
				LogLevel: "error",
				ClockSrc: "internal",
				Tempo:    120.0,
			},
		},
		{
			name: "headless mode",
			args: []string{"--headless"},
			expected: Config{
				LogLevel: "info",
				ClockSrc: "internal",
				Tempo:    120.0,
				Headless: true,
			},
		},
		{
			name: "help",
			args: []string{"--help"},
			expected: Config{
				LogLevel: "info",
				ClockSrc: "internal",
				Tempo:    120.0,
				ShowHelp: true,
			},
		},
		{
			name: "help shorthand",
			args: []string{"-h"},
			expected: Config{
				LogLevel: "info",
				ClockSrc: "internal",
				Tempo:    120.0,
				ShowHelp: true,
			},
		},
		{
			name: "clock source midi",
			args: []string{"--clock", "midi"},
			expected: Config{
				LogLevel: "info",
				ClockSrc: "midi",
				Tempo:    120.0,
			},
		},
		{
			name: "tempo",
			args: []string{"--tempo", "140"},
			expected: Config{
				LogLevel: "info",
				ClockSrc: "internal",
				Tempo:    140.0,
			},
		},
		{
			name: "song path",
			args: []string{"--song", "/path/to/song.bin"},
			expected: Config{
				LogLevel: "info",
				ClockSrc: "internal",
				Tempo:    120.0,
				SongPath: "/path/to/song.bin",
			},
		},
		{
			name: "multiple options",
			args: []string{"--timeout", "30", "--log-level", "warn", "--headless", "--clock", "auto"},
			expected: Config{
				Timeout:  30 * time.Second,
				LogLevel: "warn",
				ClockSrc: "auto",
				Tempo:    120.0,
				Headless: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if config.SongPath != tt.expected.SongPath {
				t.Errorf("SongPath = %q, want %q", config.SongPath, tt.expected.SongPath)
			}
			if config.Timeout != tt.expected.Timeout {
				t.Errorf("Timeout = %v, want %v", config.Timeout, tt.expected.Timeout)
			}
			if config.LogLevel != tt.expected.LogLevel {
				t.Errorf("LogLevel = %q, want %q", config.LogLevel, tt.expected.LogLevel)
			}
			if config.ClockSrc != tt.expected.ClockSrc {
				t.Errorf("ClockSrc = %q, want %q", config.ClockSrc, tt.expected.ClockSrc)
			}
			if config.Tempo != tt.expected.Tempo {
				t.Errorf("Tempo = %v, want %v", config.Tempo, tt.expected.Tempo)
			}
			if config.Headless != tt.expected.Headless {
				t.Errorf("Headless = %v, want %v", config.Headless, tt.expected.Headless)
			}
			if config.ShowHelp != tt.expected.ShowHelp {
				t.Errorf("ShowHelp = %v, want %v", config.ShowHelp, tt.expected.ShowHelp)
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "negative timeout", args: []string{"--timeout", "-10"}},
		{name: "invalid log level", args: []string{"--log-level", "invalid"}},
		{name: "invalid log level shorthand", args: []string{"-l", "trace"}},
		{name: "invalid clock source", args: []string{"--clock", "bogus"}},
		{name: "tempo too low", args: []string{"--tempo", "1"}},
		{name: "tempo too high", args: []string{"--tempo", "1000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseArgs_EnvironmentVariables(t *testing.T) {
	origHeadless := os.Getenv("HEADLESS")
	origTimeout := os.Getenv("TIMEOUT")
	origLogLevel := os.Getenv("LOG_LEVEL")
	origClockSrc := os.Getenv("CARBON_CLOCK_SRC")

	defer func() {
		os.Setenv("HEADLESS", origHeadless)
		os.Setenv("TIMEOUT", origTimeout)
		os.Setenv("LOG_LEVEL", origLogLevel)
		os.Setenv("CARBON_CLOCK_SRC", origClockSrc)
	}()

	tests := []struct {
		name     string
		args     []string
		envVars  map[string]string
		expected Config
	}{
		{
			name:     "HEADLESS=1 enables headless mode",
			args:     []string{},
			envVars:  map[string]string{"HEADLESS": "1"},
			expected: Config{Headless: true, LogLevel: "info", ClockSrc: "internal"},
		},
		{
			name:     "HEADLESS=TRUE enables headless mode (case insensitive)",
			args:     []string{},
			envVars:  map[string]string{"HEADLESS": "TRUE"},
			expected: Config{Headless: true, LogLevel: "info", ClockSrc: "internal"},
		},
		{
			name:     "TIMEOUT sets timeout",
			args:     []string{},
			envVars:  map[string]string{"TIMEOUT": "30"},
			expected: Config{Timeout: 30 * time.Second, LogLevel: "info", ClockSrc: "internal"},
		},
		{
			name:     "LOG_LEVEL sets log level",
			args:     []string{},
			envVars:  map[string]string{"LOG_LEVEL": "debug"},
			expected: Config{LogLevel: "debug", ClockSrc: "internal"},
		},
		{
			name:     "CARBON_CLOCK_SRC sets clock source",
			args:     []string{},
			envVars:  map[string]string{"CARBON_CLOCK_SRC": "midi"},
			expected: Config{LogLevel: "info", ClockSrc: "midi"},
		},
		{
			name:     "command line flag overrides HEADLESS env var",
			args:     []string{"--headless"},
			envVars:  map[string]string{"HEADLESS": "0"},
			expected: Config{Headless: true, LogLevel: "info", ClockSrc: "internal"},
		},
		{
			name:     "command line flag overrides TIMEOUT env var",
			args:     []string{"--timeout", "10"},
			envVars:  map[string]string{"TIMEOUT": "30"},
			expected: Config{Timeout: 10 * time.Second, LogLevel: "info", ClockSrc: "internal"},
		},
		{
			name:     "command line flag overrides LOG_LEVEL env var",
			args:     []string{"--log-level", "error"},
			envVars:  map[string]string{"LOG_LEVEL": "debug"},
			expected: Config{LogLevel: "error", ClockSrc: "internal"},
		},
		{
			name:     "multiple env vars",
			args:     []string{},
			envVars:  map[string]string{"HEADLESS": "1", "TIMEOUT": "60", "LOG_LEVEL": "warn"},
			expected: Config{Headless: true, Timeout: 60 * time.Second, LogLevel: "warn", ClockSrc: "internal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("HEADLESS")
			os.Unsetenv("TIMEOUT")
			os.Unsetenv("LOG_LEVEL")
			os.Unsetenv("CARBON_CLOCK_SRC")

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if config.Headless != tt.expected.Headless {
				t.Errorf("Headless = %v, want %v", config.Headless, tt.expected.Headless)
			}
			if config.Timeout != tt.expected.Timeout {
				t.Errorf("Timeout = %v, want %v", config.Timeout, tt.expected.Timeout)
			}
			if config.LogLevel != tt.expected.LogLevel {
				t.Errorf("LogLevel = %q, want %q", config.LogLevel, tt.expected.LogLevel)
			}
			if config.ClockSrc != tt.expected.ClockSrc {
				t.Errorf("ClockSrc = %q, want %q", config.ClockSrc, tt.expected.ClockSrc)
			}
		})
	}
}
