// Command carbon-sim is a headless simulator exercising the full
// CARBON core against an in-memory transport and a stdout message
// transcript, in place of the real DIN/USB/CV hardware. Grounded on the
// teacher's cmd-style harness, reading the same pkg/cli.Config surface.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kilpatrickaudio/carbon-core/pkg/carbon"
	"github.com/kilpatrickaudio/carbon-core/pkg/cli"
	"github.com/kilpatrickaudio/carbon-core/pkg/clock"
	"github.com/kilpatrickaudio/carbon-core/pkg/logger"
	"github.com/kilpatrickaudio/carbon-core/pkg/midistream"
	"github.com/kilpatrickaudio/carbon-core/pkg/store"
)

// stdoutAnalogSink prints every CV/gate/clock/reset transition, standing
// in for the real DAC/GPIO driver.
type stdoutAnalogSink struct{ quiet bool }

func (s *stdoutAnalogSink) SetClock(on bool) {
	if !s.quiet {
		fmt.Printf("analog: clock=%v\n", on)
	}
}
func (s *stdoutAnalogSink) SetReset(on bool) {
	if !s.quiet {
		fmt.Printf("analog: reset=%v\n", on)
	}
}
func (s *stdoutAnalogSink) SetCV(channel int, value byte) {
	if !s.quiet {
		fmt.Printf("analog: cv[%d]=%d\n", channel, value)
	}
}
func (s *stdoutAnalogSink) SetGate(channel int, on bool) {
	if !s.quiet {
		fmt.Printf("analog: gate[%d]=%v\n", channel, on)
	}
}

func main() {
	config, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if config.ShowHelp {
		cli.PrintHelp()
		return
	}
	if err := logger.InitLogger(config.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	stream := midistream.NewStream(64)
	analogSink := &stdoutAnalogSink{quiet: config.Headless}
	st := store.NewMemoryStore()

	dev := carbon.NewDevice(stream, analogSink, st, log)

	if config.SongPath != "" {
		data, err := os.ReadFile(config.SongPath)
		if err != nil {
			log.Error("failed to read song file", "path", config.SongPath, "error", err)
			os.Exit(1)
		}
		if err := st.WriteBlob(0, store.SlotSong, data); err != nil {
			log.Error("failed to stage song blob", "error", err)
			os.Exit(1)
		}
		if err := dev.LoadSong(0); err != nil {
			log.Error("failed to load song", "error", err)
			os.Exit(1)
		}
	}

	if config.ClockSrc == "internal" {
		dev.Clock().SetTempo(config.Tempo)
		dev.Run()
	}

	log.Info("carbon-sim started", "clock", config.ClockSrc, "tempo", config.Tempo)

	ticker := time.NewTicker(time.Duration(clock.DefaultTaskUS) * time.Microsecond)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if config.Timeout > 0 {
		timer := time.NewTimer(config.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ticker.C:
			dev.Clock().TaskTick()
			dev.TaskTick()
			drainOutgoing(dev, stream, config.Headless)
		case <-deadline:
			log.Info("carbon-sim stopping", "reason", "timeout elapsed")
			return
		}
	}
}

func drainOutgoing(dev *carbon.Device, stream *midistream.Stream, quiet bool) {
	for port := midistream.Port(0); port < midistream.Port(midistream.NumPorts); port++ {
		for stream.Available(port) {
			msg, ok := stream.Dequeue(port)
			if !ok {
				break
			}
			if !quiet {
				fmt.Println(msg.String())
			}
		}
	}
}
