package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zombor/scanai/internal/imaging"
)

// maxFrameSize caps a single frame; high-resolution phone photos fit comfortably
const maxFrameSize = int64(50 << 20)

// FileDevice captures by reading an image file from disk
type FileDevice struct {
	path string
}

// NewFileDevice creates a FileDevice for path
func NewFileDevice(path string) *FileDevice {
	return &FileDevice{path: path}
}

func (f *FileDevice) Name() string {
	return "file:" + f.path
}

// Capture reads the file as it is right now
func (f *FileDevice) Capture(ctx context.Context) (Frame, error) {
	return readFrame(f.path)
}

// DirectoryDevice captures the newest image dropped into a folder
type DirectoryDevice struct {
	dir string
}

// NewDirectoryDevice creates a DirectoryDevice watching dir
func NewDirectoryDevice(dir string) *DirectoryDevice {
	return &DirectoryDevice{dir: dir}
}

func (d *DirectoryDevice) Name() string {
	return "dir:" + d.dir
}

// Capture picks the most recently modified image in the folder
func (d *DirectoryDevice) Capture(ctx context.Context) (Frame, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return Frame{}, fmt.Errorf("reading directory: %w", err)
	}

	var (
		newest  string
		newTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || imaging.TypeFromExtension(entry.Name()) == "" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newTime) {
			newest = entry.Name()
			newTime = info.ModTime()
		}
	}
	if newest == "" {
		return Frame{}, fmt.Errorf("no images in %s", d.dir)
	}

	return readFrame(filepath.Join(d.dir, newest))
}

func readFrame(path string) (Frame, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Frame{}, fmt.Errorf("reading file: %w", err)
	}
	if info.Size() > maxFrameSize {
		return Frame{}, fmt.Errorf("file is too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("reading file: %w", err)
	}

	return Frame{
		Data:        data,
		ContentType: imaging.TypeFromExtension(path),
		CapturedAt:  time.Now(),
	}, nil
}

// SnapshotDevice captures a still from an IP camera snapshot endpoint
type SnapshotDevice struct {
	url      string
	username string
	password string
	client   *http.Client
}

// NewSnapshotDevice creates a SnapshotDevice for rawURL; user info in the URL becomes basic auth
func NewSnapshotDevice(rawURL string, timeout time.Duration) (*SnapshotDevice, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("snapshot url must be http or https: %q", rawURL)
	}

	d := &SnapshotDevice{
		client: &http.Client{Timeout: timeout},
	}
	if u.User != nil {
		d.username = u.User.Username()
		d.password, _ = u.User.Password()
		u.User = nil
	}
	d.url = u.String()
	return d, nil
}

func (s *SnapshotDevice) Name() string {
	return "snapshot:" + s.url
}

// Capture fetches one snapshot
func (s *SnapshotDevice) Capture(ctx context.Context) (Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return Frame{}, fmt.Errorf("creating request: %w", err)
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Frame{}, fmt.Errorf("calling camera: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Frame{}, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
	if err != nil {
		return Frame{}, fmt.Errorf("reading snapshot: %w", err)
	}
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("camera returned an empty snapshot")
	}

	return Frame{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		CapturedAt:  time.Now(),
	}, nil
}

// Close drops idle camera connections
func (s *SnapshotDevice) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// OpenDevice builds a device from a source string:
// "dir:<path>", "file:<path>", "http(s)://..." or a bare path
func OpenDevice(source string, timeout time.Duration) (Device, error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return nil, fmt.Errorf("empty camera source")
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		dev, err := NewSnapshotDevice(source, timeout)
		if err != nil {
			return nil, err
		}
		return dev, nil
	case strings.HasPrefix(source, "dir:"):
		dir := strings.TrimPrefix(source, "dir:")
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("opening camera source: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("camera source %s is not a directory", dir)
		}
		return NewDirectoryDevice(dir), nil
	}

	path := strings.TrimPrefix(source, "file:")
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening camera source: %w", err)
	}
	if info.IsDir() {
		return NewDirectoryDevice(path), nil
	}
	return NewFileDevice(path), nil
}
