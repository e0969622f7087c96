package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/scanai/internal/capture"
	"github.com/zombor/scanai/internal/display"
	"github.com/zombor/scanai/internal/history"
	"github.com/zombor/scanai/internal/mqttclient"
	"github.com/zombor/scanai/internal/scanning"
	"github.com/zombor/scanai/internal/startup"
)

const (
	defaultServer = "https://www.scanai.live"

	archiveNone  = "none"
	archiveLocal = "local"
	archiveMinio = "minio"

	// drainGrace bounds how long exit waits for uploads still in flight
	drainGrace = 5 * time.Second
)

var errUnreachable = errors.New("server unreachable")

type config struct {
	server      string
	timeout     time.Duration
	camera      string
	jpegQuality int
	user        string
	pass        string
	dbPath      string
	archive     string
	archiveDir  string
	minio       history.MinioConfig
	mqtt        mqttclient.Config
	mqttTopic   string
	limit       int
}

// app wires the controller, pipeline and surfaces for one process
type app struct {
	cfg        config
	client     *scanning.Client
	controller *startup.Controller
	session    *capture.Session
	pipeline   *capture.Pipeline
	status     *statusSignal
	closers    []func()

	mu       sync.Mutex
	inflight []*capture.Attempt
}

func newApp(ctx context.Context, cfg config, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, status: newStatusSignal()}

	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	a.client = client

	surfaces := display.Multi{display.NewConsole(out), a.status}

	if cfg.dbPath != "" {
		db, err := history.NewBoltDB(cfg.dbPath)
		if err != nil {
			return nil, fmt.Errorf("opening history: %w", err)
		}
		a.closers = append(a.closers, func() { db.Close() })
		surfaces = append(surfaces, history.NewRecorder(db))
	}

	if cfg.mqtt.Host != "" {
		cfg.mqtt.ClientID = "scanai-" + uuid.NewString()[:8]
		mq, err := mqttclient.NewClient(cfg.mqtt)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to mqtt: %w", err)
		}
		remote := display.NewMQTT(mq, cfg.mqttTopic)
		a.closers = append(a.closers, mq.Close, remote.Close)
		surfaces = append(surfaces, remote)
		slog.Info("Publishing to MQTT", "host", cfg.mqtt.Host, "topic", cfg.mqttTopic)
	}

	opts := []capture.Option{capture.WithJPEGQuality(cfg.jpegQuality)}
	archiver, err := newArchiver(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if archiver != nil {
		opts = append(opts, capture.WithArchiver(archiver))
	}

	a.session = capture.NewSession()
	a.closers = append(a.closers, a.session.Unbind)
	if cfg.camera != "" {
		dev, err := capture.OpenDevice(cfg.camera, cfg.timeout)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening camera: %w", err)
		}
		a.session.Bind(dev)
	}

	a.pipeline = capture.NewPipeline(a.session, client, surfaces, opts...)
	a.controller = startup.New(client, surfaces)
	return a, nil
}

func newClient(cfg config) (*scanning.Client, error) {
	return scanning.NewClient(scanning.Config{
		BaseURL:  cfg.server,
		Timeout:  cfg.timeout,
		Username: cfg.user,
		Password: cfg.pass,
	})
}

func newArchiver(ctx context.Context, cfg config) (capture.Archiver, error) {
	switch cfg.archive {
	case "", archiveNone:
		return nil, nil
	case archiveLocal:
		store, err := history.NewLocalStorage(cfg.archiveDir)
		if err != nil {
			return nil, fmt.Errorf("initializing archive: %w", err)
		}
		return store, nil
	case archiveMinio:
		store, err := history.NewMinioStorage(ctx, cfg.minio)
		if err != nil {
			return nil, fmt.Errorf("initializing archive: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("invalid archive type %q (want local, minio or none)", cfg.archive)
	}
}

// waitReady blocks until the current startup cycle ends
func (a *app) waitReady(ctx context.Context) error {
	select {
	case <-a.controller.Ready():
		return nil
	case <-a.status.unreachable:
		return errUnreachable
	case <-ctx.Done():
		return ctx.Err()
	}
}

// track remembers an attempt until it resolves
func (a *app) track(attempt *capture.Attempt) {
	a.mu.Lock()
	defer a.mu.Unlock()
	live := a.inflight[:0]
	for _, at := range a.inflight {
		select {
		case <-at.Done():
		default:
			live = append(live, at)
		}
	}
	a.inflight = append(live, attempt)
}

// drain waits up to grace for tracked attempts to resolve and returns how many did not
func (a *app) drain(grace time.Duration) int {
	a.mu.Lock()
	pending := a.inflight
	a.inflight = nil
	a.mu.Unlock()

	deadline := time.After(grace)
	for i, at := range pending {
		select {
		case <-at.Done():
		case <-deadline:
			left := len(pending) - i
			slog.Warn("Abandoning unfinished scans", "count", left)
			return left
		}
	}
	return 0
}

// Close releases everything newApp opened, newest first
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// statusSignal turns the unreachable status into a channel send
type statusSignal struct {
	unreachable chan struct{}
}

func newStatusSignal() *statusSignal {
	return &statusSignal{unreachable: make(chan struct{}, 1)}
}

func (s *statusSignal) ServerStatus(status scanning.ServerStatus, message string) {
	if status != scanning.StatusUnreachable {
		return
	}
	select {
	case s.unreachable <- struct{}{}:
	default:
	}
}

func (s *statusSignal) Scanning(attempt uint64) {}

func (s *statusSignal) Outcome(o scanning.Outcome) {}
