// ABOUTME: Entry point for the VBAN sink
// ABOUTME: Parses CLI flags and runs the receiver with its TUI, mDNS and monitor
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vbansink/vbansink-go/internal/discovery"
	"github.com/vbansink/vbansink-go/internal/monitor"
	"github.com/vbansink/vbansink-go/internal/ui"
	"github.com/vbansink/vbansink-go/internal/version"
	"github.com/vbansink/vbansink-go/pkg/audio/output"
	"github.com/vbansink/vbansink-go/pkg/vbansink"
)

var (
	address        = flag.String("address", "0.0.0.0", "Local address to listen on")
	port           = flag.Int("port", vbansink.DefaultPort, "UDP port to listen on")
	streamName     = flag.String("stream", "", "Only play packets with this stream name (max 16 bytes)")
	channels       = flag.Int("channels", 0, "Drop packets with any other channel count instead of converting (0 = any)")
	rate           = flag.Int("rate", 0, "Drop packets at any other sample rate in Hz instead of resampling (0 = any)")
	device         = flag.String("device", "default", "Output device name (substring match)")
	backend        = flag.String("backend", output.BackendMalgo, "Output backend: malgo, oto or portaudio")
	preRollMs      = flag.Int("preroll-ms", 0, "Silence written before a new stream, in milliseconds")
	startThreshold = flag.Int("start-threshold", output.DefaultStartThreshold, "Frames buffered before playback starts")
	rcvBuf         = flag.Int("rcvbuf", 0, "Socket receive buffer in bytes (0 = system default)")
	logFile        = flag.String("log-file", "vban-sink.log", "Log file path")
	noTUI          = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	debug          = flag.Bool("debug", false, "Log rejected and filtered packets")
	enableMDNS     = flag.Bool("mdns", false, "Advertise this receiver via mDNS")
	name           = flag.String("name", "", "Receiver friendly name (default: hostname-vban-sink)")
	monitorAddr    = flag.String("monitor", "", "Serve the WebSocket status feed on this address (e.g. :8080)")
	listServices   = flag.Bool("list", false, "List VBAN services advertised on the network and exit")
	showVersion    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *listServices {
		if err := listVBANServices(); err != nil {
			log.Fatalf("discovery failed: %v", err)
		}
		return
	}

	// Determine if we should use TUI or streaming logs
	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	var logOut io.Writer = f
	if !useTUI {
		// Streaming logs mode: log to both stdout and file
		logOut = io.MultiWriter(os.Stdout, f)
	}
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	sinkName := *name
	if sinkName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		sinkName = fmt.Sprintf("%s-vban-sink", hostname)
	}
	instanceID := uuid.New().String()

	slog.Info("starting VBAN sink",
		"name", sinkName,
		"version", version.Version,
		"instance", instanceID,
		"backend", *backend,
		"device", *device)

	var mon *monitor.Server

	receiver, err := vbansink.New(vbansink.Config{
		BindAddress:    *address,
		Port:           *port,
		StreamName:     *streamName,
		Channels:       *channels,
		SampleRate:     *rate,
		Device:         *device,
		Backend:        *backend,
		PreRoll:        time.Duration(*preRollMs) * time.Millisecond,
		StartThreshold: *startThreshold,
		ReceiveBuffer:  *rcvBuf,
		Logger:         logger,
		OnStateChange: func(st vbansink.Status) {
			if mon != nil {
				mon.NotifyState(st)
			}
		},
	})
	if err != nil {
		slog.Error("failed to start receiver", "err", err)
		os.Exit(1)
	}
	listenAddr := receiver.LocalAddr().String()

	if *monitorAddr != "" {
		mon, err = monitor.New(monitor.Config{
			Addr:   *monitorAddr,
			Source: receiver,
			Hello: monitor.Hello{
				InstanceID: instanceID,
				Name:       sinkName,
				Version:    version.Version,
				ListenAddr: listenAddr,
			},
			Logger: logger,
		})
		if err != nil {
			slog.Error("failed to create monitor", "err", err)
			os.Exit(1)
		}
	}

	if *enableMDNS {
		disc := discovery.NewManager(discovery.Config{
			ServiceName: sinkName,
			Port:        receiver.LocalAddr().Port,
			StreamName:  *streamName,
			InstanceID:  instanceID,
			Version:     version.Version,
			Logger:      logger,
		})
		if err := disc.Advertise(); err != nil {
			slog.Warn("failed to start mDNS advertisement", "err", err)
		} else {
			defer disc.Stop()
		}
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-baseCtx.Done():
		}
	}()

	g, ctx := errgroup.WithContext(baseCtx)

	g.Go(func() error {
		return receiver.Run(ctx)
	})

	if mon != nil {
		g.Go(func() error {
			return mon.Run(ctx)
		})
	}

	if useTUI {
		ctrl := ui.NewControl()
		tuiProg, err := ui.Run(ui.Config{
			ListenAddr: listenAddr,
			StreamName: *streamName,
			Backend:    *backend,
			Version:    version.String(),
		}, ctrl)
		if err != nil {
			slog.Error("failed to start TUI", "err", err)
			os.Exit(1)
		}

		g.Go(func() error {
			_, err := tuiProg.Run()
			cancel()
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("TUI: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-ctrl.Quit:
				slog.Info("received quit from TUI")
				cancel()
			case <-ctx.Done():
				tuiProg.Quit()
			}
			return nil
		})
		g.Go(func() error {
			statsUpdateLoop(ctx, receiver, tuiProg.Send)
			return nil
		})
	}

	runErr := g.Wait()

	if err := receiver.Close(); err != nil {
		slog.Warn("error closing receiver", "err", err)
	}

	if runErr != nil {
		slog.Error("receiver stopped with error", "err", runErr)
		os.Exit(1)
	}
	slog.Info("receiver stopped")
}

// statsUpdateLoop periodically updates TUI with receiver statistics
func statsUpdateLoop(ctx context.Context, r *vbansink.Receiver, send func(tea.Msg)) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			send(ui.StatusMsg{
				Status: r.Status(),
				Stats:  r.Stats(),
				Meter:  r.Meter(),
				At:     now,
			})
		case <-ctx.Done():
			return
		}
	}
}

// listVBANServices prints VBAN services found via mDNS
func listVBANServices() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	services, err := discovery.Browse(ctx, 3*time.Second)
	if err != nil {
		return err
	}
	if len(services) == 0 {
		fmt.Println("No VBAN services found")
		return nil
	}
	for _, s := range services {
		fmt.Printf("%-24s %-21s stream=%q id=%s\n",
			s.Name, net.JoinHostPort(s.Host, strconv.Itoa(s.Port)), s.Stream, s.ID)
	}
	return nil
}
