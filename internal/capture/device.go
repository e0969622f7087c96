package capture

import (
	"context"
	"image"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Frame is one still image produced by a device.
// Data holds encoded bytes; Image holds a raw frame when the device has no encoder.
type Frame struct {
	Data        []byte
	ContentType string
	Image       image.Image
	CapturedAt  time.Time
}

// Device is a still-capture handle
type Device interface {
	// Name identifies the device in logs
	Name() string
	// Capture acquires exactly one frame
	Capture(ctx context.Context) (Frame, error)
}

// Session holds the single active device binding.
// Binding a device implicitly unbinds the previous one.
type Session struct {
	mu     sync.RWMutex
	device Device
}

// NewSession creates a Session with no bound device
func NewSession() *Session {
	return &Session{}
}

// Bind makes dev the active device, releasing any prior one
func (s *Session) Bind(dev Device) {
	s.mu.Lock()
	prev := s.device
	s.device = dev
	s.mu.Unlock()

	if prev != nil {
		release(prev)
	}
	if dev != nil {
		slog.Info("Capture device bound", "device", dev.Name())
	}
}

// Unbind releases the active device, if any
func (s *Session) Unbind() {
	s.mu.Lock()
	prev := s.device
	s.device = nil
	s.mu.Unlock()

	if prev != nil {
		release(prev)
	}
}

// Active returns the bound device
func (s *Session) Active() (Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device, s.device != nil
}

func release(dev Device) {
	slog.Info("Capture device unbound", "device", dev.Name())
	if closer, ok := dev.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("Failed to close capture device", "device", dev.Name(), "error", err)
		}
	}
}
