package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof" // Enable pprof
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fitmirror/streaming-server/internal/camera"
	"github.com/fitmirror/streaming-server/internal/codec"
	"github.com/fitmirror/streaming-server/internal/logger"
	"github.com/fitmirror/streaming-server/internal/metrics"
	"github.com/fitmirror/streaming-server/internal/pose"
	"github.com/fitmirror/streaming-server/internal/server"
	"github.com/fitmirror/streaming-server/internal/session"
	"github.com/fitmirror/streaming-server/internal/workout"
)

var (
	// Command-line flags
	device      = flag.String("device", "/dev/video0", "Capture device: a V4L2 path, \"sim\", or \"dir:<path>\"")
	width       = flag.Int("width", 640, "Requested capture width")
	height      = flag.Int("height", 480, "Requested capture height")
	httpAddr    = flag.String("http", ":10000", "Event gateway address")
	metricsAddr = flag.String("metrics", ":9090", "Metrics server address")
	pprofAddr   = flag.String("pprof", ":6060", "pprof server address")
	poseAddr    = flag.String("pose", "", "Pose worker ZMQ endpoint (e.g. tcp://127.0.0.1:5555); empty runs passthrough")
	poseTimeout = flag.Duration("pose-timeout", 2*time.Second, "Pose worker send/recv timeout")
	interval    = flag.Duration("interval", 100*time.Millisecond, "Stream pacing interval")
	jpegQuality = flag.Int("jpeg-quality", 80, "JPEG encode quality (1-100)")
	maxWidth    = flag.Int("max-width", 1280, "Downscale frames wider than this before encode (0 disables)")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error, silent)")
	logColor    = flag.Bool("log-color", true, "Enable colored log output")
)

func main() {
	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, *logColor)

	logger.Info("Main", "Rep-streaming server starting...")
	logger.Info("Main", "  Device: %s (%dx%d)", *device, *width, *height)
	logger.Info("Main", "  Gateway: %s", *httpAddr)
	logger.Info("Main", "  Metrics: %s", *metricsAddr)
	logger.Info("Main", "  Pose worker: %s", orNone(*poseAddr))

	m := metrics.New()

	cam := camera.New(newOpener(*device, *width, *height))

	proc, err := newProcessor(*poseAddr, *poseTimeout)
	if err != nil {
		log.Fatalf("Failed to connect pose worker: %v", err)
	}
	defer proc.Close()

	cfg := server.DefaultConfig()
	cfg.Addr = *httpAddr
	cfg.Session.Interval = *interval
	cfg.Session.JPEGQuality = *jpegQuality
	cfg.Session.MaxWidth = *maxWidth

	cdc := &codec.Codec{Quality: cfg.Session.JPEGQuality, MaxWidth: cfg.Session.MaxWidth}
	registry := session.NewRegistry(cam, proc, cdc, cfg.Session, m)
	gateway := server.New(cfg, registry, workout.NewMemorySink(), m)

	go func() {
		logger.Info("Main", "Starting pprof server on %s", *pprofAddr)
		if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
			logger.Warn("Main", "pprof server error: %v", err)
		}
	}()

	go func() {
		logger.Info("Main", "Starting metrics server on %s", *metricsAddr)
		if err := m.StartServer(*metricsAddr); err != nil {
			logger.Warn("Main", "Metrics server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := gateway.Run(ctx); err != nil {
		log.Fatalf("Gateway error: %v", err)
	}

	// Wait for stream loops to exit before the device goes away under
	// them, then make sure it is not left open.
	registry.Shutdown()
	cam.Release()
	logger.Info("Main", "Server stopped")
}

func newOpener(device string, width, height int) camera.Opener {
	switch {
	case device == "sim":
		return &camera.SimOpener{Width: width, Height: height}
	case strings.HasPrefix(device, "dir:"):
		return &camera.DirOpener{Path: strings.TrimPrefix(device, "dir:")}
	default:
		return &camera.V4L2Opener{Path: device, Width: width, Height: height}
	}
}

func newProcessor(endpoint string, timeout time.Duration) (pose.Processor, error) {
	if endpoint == "" {
		logger.Warn("Main", "No pose worker configured, streaming unprocessed frames")
		return pose.Passthrough{}, nil
	}
	return pose.NewWorker(endpoint, timeout)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
