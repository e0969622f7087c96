package analysis

import (
	"context"
	"strings"
)

// textPrompt asks a vision model for a plain transcription
const textPrompt = `Transcribe all text visible in this image exactly as written.
Preserve the reading order and line breaks. Include every number and digit you can read.
Return only the transcribed text with no commentary, headings or markdown formatting.
If there is no text in the image, return an empty response.`

// Analyzer extracts the visible text of an image
type Analyzer interface {
	DetectText(ctx context.Context, imageData []byte, contentType string) (string, error)
	Close() error
}

// Static answers every image with the same text
type Static struct {
	Text string
}

func (s Static) DetectText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	return s.Text, nil
}

func (s Static) Close() error {
	return nil
}

// cleanModelText removes markdown fences a model may wrap its answer in
func cleanModelText(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 && !strings.ContainsAny(text[:nl], " \t") {
		// language tag line such as ```text
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
