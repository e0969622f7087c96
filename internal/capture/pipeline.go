package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zombor/scanai/internal/imaging"
	"github.com/zombor/scanai/internal/scanning"
)

// archiveTimeout bounds a single archive write
const archiveTimeout = 30 * time.Second

// Uploader sends one capture to the analysis service
type Uploader interface {
	Upload(ctx context.Context, capture scanning.CaptureRequest) (*scanning.ScanResult, error)
}

// Archiver keeps a copy of uploaded frames
type Archiver interface {
	Archive(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Observer is told about every attempt: once when it starts, once when it resolves
type Observer interface {
	Scanning(attempt uint64)
	Outcome(o scanning.Outcome)
}

// Pipeline turns capture gestures into uploads and delivers their outcomes
type Pipeline struct {
	session  *Session
	uploader Uploader
	observer Observer
	archiver Archiver
	quality  int
	attempts atomic.Uint64
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithArchiver stores every encoded frame before upload
func WithArchiver(a Archiver) Option {
	return func(p *Pipeline) {
		p.archiver = a
	}
}

// WithJPEGQuality sets the quality used when frames must be re-encoded
func WithJPEGQuality(quality int) Option {
	return func(p *Pipeline) {
		p.quality = quality
	}
}

// NewPipeline creates a new Pipeline capturing from session's bound device
func NewPipeline(session *Session, uploader Uploader, observer Observer, opts ...Option) *Pipeline {
	if observer == nil {
		observer = nopObserver{}
	}
	p := &Pipeline{
		session:  session,
		uploader: uploader,
		observer: observer,
		quality:  imaging.DefaultJPEGQuality,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Trigger starts one capture attempt and returns immediately.
// The observer sees Scanning before Trigger returns; the outcome arrives later.
// Attempts are independent and outlive ctx cancellation.
func (p *Pipeline) Trigger(ctx context.Context) *Attempt {
	attempt := newAttempt(p.attempts.Add(1))
	p.observer.Scanning(attempt.Number())

	dev, ok := p.session.Active()
	if !ok {
		slog.Warn("Scan triggered without a capture device", "attempt", attempt.Number())
		p.resolve(attempt, scanning.Failure(attempt.Number(), "", scanning.ErrNoActiveCaptureDevice))
		return attempt
	}

	go p.run(context.WithoutCancel(ctx), attempt, dev)
	return attempt
}

func (p *Pipeline) run(ctx context.Context, attempt *Attempt, dev Device) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Capture attempt panicked", "attempt", attempt.Number(), "panic", r)
			p.resolve(attempt, scanning.Failure(attempt.Number(), "", fmt.Errorf("attempt %d panicked: %v", attempt.Number(), r)))
		}
	}()

	p.resolve(attempt, p.process(ctx, attempt.Number(), dev))
}

func (p *Pipeline) process(ctx context.Context, number uint64, dev Device) scanning.Outcome {
	frame, err := dev.Capture(ctx)
	if err != nil {
		return scanning.Failure(number, "", fmt.Errorf("%w: %s: %w", scanning.ErrCapture, dev.Name(), err))
	}

	data, err := encodeFrame(frame, p.quality)
	if err != nil {
		return scanning.Failure(number, "", fmt.Errorf("%w: %s: %w", scanning.ErrCapture, dev.Name(), err))
	}

	capturedAt := frame.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	req := scanning.NewCaptureRequest(data, capturedAt)

	if p.archiver != nil {
		go p.archive(ctx, req)
	}

	slog.Info("Uploading capture",
		"attempt", number,
		"request_id", req.ID,
		"device", dev.Name(),
		"size", len(req.Data),
	)

	result, err := p.uploader.Upload(ctx, req)
	if err != nil {
		return scanning.Failure(number, req.ID, err)
	}
	return scanning.Success(number, req.ID, result)
}

func (p *Pipeline) archive(ctx context.Context, req scanning.CaptureRequest) {
	ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()

	location, err := p.archiver.Archive(ctx, req.ArchiveKey(), req.Data, scanning.UploadContentType)
	if err != nil {
		slog.Warn("Failed to archive capture", "request_id", req.ID, "error", err)
		return
	}
	slog.Debug("Capture archived", "request_id", req.ID, "location", location)
}

func (p *Pipeline) resolve(attempt *Attempt, o scanning.Outcome) {
	if !attempt.resolve(o, p.observer.Outcome) {
		return
	}
	if o.OK() {
		slog.Info("Scan succeeded", "attempt", o.Attempt, "request_id", o.RequestID, "sum", o.Result.Sum, "numbers", len(o.Result.Numbers))
	} else {
		slog.Error("Scan failed", "attempt", o.Attempt, "request_id", o.RequestID, "reason", scanning.Reason(o.Err), "error", o.Err)
	}
}

// encodeFrame makes sure only JPEG leaves the pipeline
func encodeFrame(frame Frame, quality int) ([]byte, error) {
	if len(frame.Data) > 0 {
		return imaging.EncodeJPEG(frame.Data, frame.ContentType, quality)
	}
	if frame.Image != nil {
		return imaging.JPEGFromImage(frame.Image, quality)
	}
	return nil, fmt.Errorf("device returned an empty frame")
}

type nopObserver struct{}

func (nopObserver) Scanning(uint64)          {}
func (nopObserver) Outcome(scanning.Outcome) {}
