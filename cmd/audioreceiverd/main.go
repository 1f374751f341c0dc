// Command audioreceiverd runs the audio receiver as a standalone
// daemon: it listens for framed PCM16 packets on UDP or TCP, jitter-
// buffers them, and plays them out through the default audio device
// until interrupted.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/rjim/audioreceiver/internal/config"
	"github.com/rjim/audioreceiver/internal/logging"
	"github.com/rjim/audioreceiver/internal/session"
	"github.com/rjim/audioreceiver/internal/sink"
	"github.com/rjim/audioreceiver/internal/telemetry"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "Path to a YAML config file.")
	port := pflag.IntP("port", "p", 0, "Port to listen on for the audio stream (overrides config).")
	jitterMS := pflag.IntP("jitter-ms", "j", 0, "Initial target jitter in milliseconds (overrides config).")
	transport := pflag.StringP("transport", "t", "", `Transport: "udp" or "tcp" (overrides config).`)
	reorder := pflag.Bool("reorder", false, "Use the sequence-ordered jitter buffer with packet-loss concealment.")
	debug := pflag.Bool("debug", false, "Enable debug-level console logging.")
	help := pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: audioreceiverd [options]")
		fmt.Fprintln(os.Stderr, "Receives a framed PCM16 stream and plays it out on the default audio device.")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	daemonCfg, err := config.LoadDaemon(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audioreceiverd: %v\n", err)
		os.Exit(1)
	}

	if *port != 0 {
		daemonCfg.Session.Port = *port
	}
	if *jitterMS != 0 {
		daemonCfg.Session.JitterMS = *jitterMS
	}
	if *transport != "" {
		daemonCfg.Session.Transport = config.ParseTransport(*transport)
	}
	if *reorder {
		daemonCfg.Session.Reorder = true
	}
	if *debug {
		daemonCfg.Debug = true
	}

	if err := daemonCfg.Session.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "audioreceiverd: %v\n", err)
		os.Exit(1)
	}

	console := logging.NewConsole(daemonCfg.Debug)
	file := logging.NewFile(daemonCfg.LogFile, daemonCfg.LogMaxSizeMB, daemonCfg.LogMaxBackups, daemonCfg.LogMaxAgeDays, daemonCfg.LogCompress)
	log := logging.NewTee(console, file)

	hub := telemetry.NewHub()
	sup := session.New(log, hub, func() sink.Sink { return sink.NewPortAudio() })

	if err := sup.Start(daemonCfg.Session); err != nil {
		log.Error("audioreceiverd: failed to start session", err)
		os.Exit(1)
	}
	log.Info(fmt.Sprintf("audioreceiverd: listening on %s port %d, jitter_ms=%d, reorder=%v",
		daemonCfg.Session.Transport, daemonCfg.Session.Port, daemonCfg.Session.JitterMS, daemonCfg.Session.Reorder))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("audioreceiverd: shutting down")
	sup.Stop()
}
