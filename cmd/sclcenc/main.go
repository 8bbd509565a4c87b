// sclcenc is a batch encode daemon: it watches an input directory for raw
// 24-bpp frame files, compresses each one through a frame.Codec in
// arrival order, and appends the result as PES packets to a single
// output stream, following the teacher's long-running-service shape
// (cmd/looper/main.go) rather than its audio-specific content.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/fsnotify/fsnotify"

	"github.com/scrnlab/sclc/config"
	"github.com/scrnlab/sclc/frame"
	"github.com/scrnlab/sclc/logging"
	"github.com/scrnlab/sclc/stream"
)

// Logging related constants, matching the teacher's cmd/looper scale.
const (
	logMaxSizeMB  = 500
	logMaxBackups = 10
	logMaxAgeDays = 28
)

func main() {
	inDir := flag.String("in", "", "directory to watch for raw WxHx3 frame files")
	outPath := flag.String("out", "", "output path for the compressed PES stream")
	logPath := flag.String("log", "sclcenc.log", "log file path")
	width := flag.Int("width", 0, "frame width in pixels")
	height := flag.Int("height", 0, "frame height in pixels")
	lossBits := flag.Int("loss", 0, "lossy pre-quantization bits, 0-5")
	runtimeConfig := flag.String("config", "", "optional JSON file for hot-reloadable motion/loss settings")
	flag.Parse()

	if *inDir == "" || *outPath == "" || *width <= 0 || *height <= 0 {
		fmt.Fprintln(os.Stderr, "sclcenc: -in, -out, -width and -height are required")
		os.Exit(2)
	}

	log := logging.New(logging.Options{
		Filename:   *logPath,
		MaxSizeMB:  logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAgeDays: logMaxAgeDays,
		Level:      logging.Info,
	})
	defer log.Close()

	opts := config.Default(*width, *height, log)
	opts.LossBits = *lossBits
	if err := opts.Validate(); err != nil {
		log.Log(logging.Fatal, "invalid configuration", "error", err)
		os.Exit(1)
	}

	d := newDaemon(opts, *outPath, log)
	defer d.close()

	if *runtimeConfig != "" {
		w, err := config.NewWatcher(*runtimeConfig, opts, d.applyConfig)
		if err != nil {
			log.Log(logging.Warning, "could not start config watcher, continuing with static config", "error", err)
		} else {
			defer w.Close()
		}
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Log(logging.Warning, "sd_notify READY failed", "error", err)
	} else if ok {
		log.Log(logging.Info, "notified systemd readiness")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := d.watchAndEncode(ctx, *inDir); err != nil {
		log.Log(logging.Error, "encode loop exited with error", "error", err)
	}

	if err := logging.CombineFatal(d.errs...); err != nil {
		log.Log(logging.Error, "batch completed with per-file failures", "error", err)
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
		os.Exit(1)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}

// daemon owns the codec, output file and PTS clock for one encode run.
type daemon struct {
	mu     sync.Mutex
	codec  *frame.Codec
	opts   config.Options
	out    *os.File
	log    logging.Logger
	frameN int
	pts    uint64

	errs []error
}

func newDaemon(opts config.Options, outPath string, log logging.Logger) *daemon {
	f, err := os.Create(outPath)
	if err != nil {
		log.Log(logging.Fatal, "could not create output file", "path", outPath, "error", err)
		os.Exit(1)
	}
	return &daemon{
		codec: frame.Init(opts.Width, opts.Height, opts.BlockParams(), opts.F0),
		opts:  opts,
		out:   f,
		log:   log,
	}
}

func (d *daemon) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codec.Deinit()
	d.out.Close()
}

// applyConfig is the config.Watcher callback: it stores the reloaded
// options, so the next frame file is encoded with the new loss level.
// The codec is reused as it is: it keeps the block.Params (motion-search
// ranges) it was created with, and width, height and F0 never change.
func (d *daemon) applyConfig(o config.Options) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts = o
	d.log.Log(logging.Info, "applied runtime config reload",
		"msr_x", o.MSRX, "msr_y", o.MSRY, "loss", o.LossBits)
}

// watchAndEncode drains any frame files already present in dir in
// filename order, then watches for new ones via fsnotify until ctx is
// cancelled.
func (d *daemon) watchAndEncode(ctx context.Context, dir string) error {
	existing, err := listFrameFiles(dir)
	if err != nil {
		return fmt.Errorf("sclcenc: listing %s: %w", dir, err)
	}
	for _, path := range existing {
		d.processFile(path)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("sclcenc: fsnotify: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("sclcenc: watching %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create == 0 {
				continue
			}
			d.processFile(ev.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			d.log.Log(logging.Warning, "watcher error", "error", err)
		}
	}
}

func (d *daemon) processFile(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	want := d.opts.Width * d.opts.Height * 3
	raw, err := os.ReadFile(path)
	if err != nil {
		d.log.Log(logging.Error, "could not read frame file", "path", path, "error", err)
		d.errs = append(d.errs, fmt.Errorf("%s: %w", path, err))
		return
	}
	if len(raw) != want {
		err := fmt.Errorf("%s: got %d bytes, want %d (%dx%dx3)", path, len(raw), want, d.opts.Width, d.opts.Height)
		d.log.Log(logging.Error, "frame file has the wrong size", "error", err)
		d.errs = append(d.errs, err)
		return
	}

	wire, err := d.codec.EncodeFrame(raw, d.frameN, false, d.opts.LossBits)
	if err != nil {
		d.log.Log(logging.Error, "could not encode frame", "path", path, "error", err)
		d.errs = append(d.errs, fmt.Errorf("%s: %w", path, err))
		return
	}
	d.frameN++

	pkt, err := stream.Packet(wire, d.pts)
	if err != nil {
		d.log.Log(logging.Error, "could not packetize frame", "path", path, "error", err)
		d.errs = append(d.errs, err)
		return
	}
	d.pts += 3000 // 90kHz clock, 30fps cadence; a real capture source would supply its own PTS

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(pkt)))
	if _, err := d.out.Write(lenBuf[:]); err != nil {
		d.errs = append(d.errs, err)
		return
	}
	if _, err := d.out.Write(pkt); err != nil {
		d.errs = append(d.errs, err)
		return
	}
	d.log.Log(logging.Debug, "encoded frame", "path", path, "wireBytes", len(wire))
}

func listFrameFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
