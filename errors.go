package mailpipe

import (
	"fmt"
	"strings"
	"time"
)

// InvalidRecipientError reports an address string that failed structural
// validation.
type InvalidRecipientError struct {
	Address string
	Err     error
}

func (e *InvalidRecipientError) Error() string {
	return fmt.Sprintf("invalid recipient %q: %v", e.Address, e.Err)
}

func (e *InvalidRecipientError) Unwrap() error { return e.Err }

// RecipientFileError reports a recipients file that could not be read or
// decoded as any known layout.
type RecipientFileError struct {
	Path string
	Err  error
}

func (e *RecipientFileError) Error() string {
	return fmt.Sprintf("recipients file %s: %v", e.Path, e.Err)
}

func (e *RecipientFileError) Unwrap() error { return e.Err }

// UnsupportedBodyTypeError reports a body subtype other than plain or html.
type UnsupportedBodyTypeError struct {
	Subtype string
}

func (e *UnsupportedBodyTypeError) Error() string {
	return fmt.Sprintf("unsupported body subtype %q", e.Subtype)
}

// AttachmentReadError reports a file that could not be read for
// attachment.
type AttachmentReadError struct {
	Path string
	Err  error
}

func (e *AttachmentReadError) Error() string {
	return fmt.Sprintf("attachment %s: %v", e.Path, e.Err)
}

func (e *AttachmentReadError) Unwrap() error { return e.Err }

// IncompleteMessageError reports a build or send attempt on a message
// that is missing required fields.
type IncompleteMessageError struct {
	Missing []string
}

func (e *IncompleteMessageError) Error() string {
	return "incomplete message: missing " + strings.Join(e.Missing, ", ")
}

// TransportUnavailableError reports that the transport process could not
// be started at all; no delivery attempt was made.
type TransportUnavailableError struct {
	Path string
	Err  error
}

func (e *TransportUnavailableError) Error() string {
	return fmt.Sprintf("transport %s unavailable: %v", e.Path, e.Err)
}

func (e *TransportUnavailableError) Unwrap() error { return e.Err }

// DeliveryError reports a transport process that ran but exited with a
// non-zero status.
type DeliveryError struct {
	ExitCode int
	Stderr   string
}

func (e *DeliveryError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("transport exited with status %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("transport exited with status %d", e.ExitCode)
}

// TransportTimeoutError reports a transport process that was killed
// because it did not finish in time.
type TransportTimeoutError struct {
	Timeout time.Duration
}

func (e *TransportTimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("transport did not finish within %v", e.Timeout)
	}
	return "transport deadline exceeded"
}

// LoggingError reports a delivery-log write failure. It never alters the
// outcome of the send it belongs to.
type LoggingError struct {
	Path string
	Err  error
}

func (e *LoggingError) Error() string {
	return fmt.Sprintf("delivery log %s: %v", e.Path, e.Err)
}

func (e *LoggingError) Unwrap() error { return e.Err }
