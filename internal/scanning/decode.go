package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// resultPayload mirrors the upload response; pointers detect missing fields and null numbers
type resultPayload struct {
	Sum          *int    `json:"sum"`
	Numbers      *[]*int `json:"numbers"`
	DetectedText *string `json:"detected_text"`
}

// DecodeResult parses a fully buffered upload response body.
// All three fields are required; any problem is reported as ErrMalformedResponse.
func DecodeResult(body []byte) (*ScanResult, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if body[0] != '{' {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrMalformedResponse)
	}

	var payload resultPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling json: %w", ErrMalformedResponse, err)
	}

	var missing []string
	if payload.Sum == nil {
		missing = append(missing, "sum")
	}
	if payload.Numbers == nil {
		missing = append(missing, "numbers")
	}
	if payload.DetectedText == nil {
		missing = append(missing, "detected_text")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}

	numbers := make([]int, 0, len(*payload.Numbers))
	for i, n := range *payload.Numbers {
		if n == nil {
			return nil, fmt.Errorf("%w: numbers[%d] is null", ErrMalformedResponse, i)
		}
		numbers = append(numbers, *n)
	}

	return &ScanResult{
		Sum:          *payload.Sum,
		Numbers:      numbers,
		DetectedText: *payload.DetectedText,
	}, nil
}
