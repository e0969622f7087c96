package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zombor/scanai/internal/imaging"
	"github.com/zombor/scanai/internal/scanning"
)

// Service turns uploaded images into scan results
type Service struct {
	analyzer Analyzer
}

// NewService creates a new Service
func NewService(analyzer Analyzer) *Service {
	return &Service{analyzer: analyzer}
}

// ProcessUpload detects the text of an image and sums the integers in it
func (s *Service) ProcessUpload(ctx context.Context, filename string, data []byte, contentType string) (*scanning.ScanResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty upload")
	}
	contentType = imaging.DetectType(data, contentType)

	text, err := s.analyzer.DetectText(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to detect text",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("detecting text: %w", err)
	}

	numbers := ExtractNumbers(text)
	result := &scanning.ScanResult{
		Sum:          Sum(numbers),
		Numbers:      numbers,
		DetectedText: text,
	}
	slog.Info("Processed upload", "filename", filename, "numbers", len(numbers), "sum", result.Sum)
	return result, nil
}
