package scanning

import "errors"

var (
	ErrProbeUnreachable      = errors.New("server unreachable")
	ErrNoActiveCaptureDevice = errors.New("no active capture device")
	ErrCapture               = errors.New("capture failed")
	ErrTransmission          = errors.New("transmission failed")
	ErrMalformedResponse     = errors.New("malformed response")
)

// Reason names the failure class of err for display and persistence
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProbeUnreachable):
		return "ProbeUnreachable"
	case errors.Is(err, ErrNoActiveCaptureDevice):
		return "NoActiveCaptureDevice"
	case errors.Is(err, ErrCapture):
		return "CaptureFailure"
	case errors.Is(err, ErrTransmission):
		return "TransmissionFailure"
	case errors.Is(err, ErrMalformedResponse):
		return "MalformedResponse"
	default:
		return "Unknown"
	}
}
