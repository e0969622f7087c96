package scanning

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// maxResponseSize bounds how much of an upload response is buffered
const maxResponseSize = 10 << 20

// Config configures the analysis service client
type Config struct {
	BaseURL string
	// Timeout applies to every request; zero keeps the transport defaults
	Timeout time.Duration
	// Username and Password enable basic auth on uploads only
	Username string
	Password string
	// HTTPClient overrides the client built from Timeout
	HTTPClient *http.Client
}

// Client talks to the remote analysis service
type Client struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewClient creates a new Client for the service at cfg.BaseURL
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https: %q", base)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url has no host: %q", base)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:  strings.TrimRight(base, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   httpClient,
	}, nil
}

// BaseURL returns the normalized service URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Probe performs one unauthenticated GET against the service root.
// Every failure is folded into an Unreachable result.
func (c *Client) Probe(ctx context.Context) ProbeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return unreachable(0, fmt.Errorf("creating request: %w", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return unreachable(0, fmt.Errorf("calling server: %w", err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if !isSuccess(resp.StatusCode) {
		return unreachable(resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return ProbeResult{Status: StatusReady, StatusCode: resp.StatusCode}
}

func unreachable(code int, err error) ProbeResult {
	err = fmt.Errorf("%w: %w", ErrProbeUnreachable, err)
	slog.Warn("Server probe failed", "status_code", code, "error", err)
	return ProbeResult{Status: StatusUnreachable, StatusCode: code, Err: err}
}

// Upload sends one frame to the service and decodes the structured result
func (c *Client) Upload(ctx context.Context, capture CaptureRequest) (*ScanResult, error) {
	if len(capture.Data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrCapture)
	}

	body, contentType, err := multipartBody(capture)
	if err != nil {
		return nil, fmt.Errorf("%w: building form: %w", ErrTransmission, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, body)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrTransmission, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling upload: %w", ErrTransmission, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrTransmission, err)
	}

	if !isSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("%w: upload returned status %d: %s", ErrTransmission, resp.StatusCode, snippet(data))
	}

	result, err := DecodeResult(data)
	if err != nil {
		slog.Error("Failed to decode upload response",
			"request_id", capture.ID,
			"status_code", resp.StatusCode,
			"body", snippet(data),
			"error", err,
		)
		return nil, err
	}

	return result, nil
}

// multipartBody builds the single-part form; CreateFormFile would force
// application/octet-stream, so the part header is written by hand
func multipartBody(capture CaptureRequest) (*bytes.Buffer, string, error) {
	filename := capture.Filename
	if filename == "" {
		filename = UploadFilename
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, UploadField, filename))
	header.Set("Content-Type", UploadContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(capture.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func snippet(data []byte) string {
	const max = 256
	s := strings.TrimSpace(string(data))
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
