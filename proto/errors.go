package proto

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingLockToken marks a conditional request attempted without the
	// lock token it needs. Raised before any transport call.
	ErrMissingLockToken = errors.New("davkit: missing lock token")
	// ErrMalformedResponse marks a response body that failed to parse into
	// the shape its method requires.
	ErrMalformedResponse = errors.New("davkit: malformed response")
)

// EncodingError marks a request description that cannot be represented on
// the wire, e.g. a PROPPATCH remove carrying a value.
type EncodingError struct {
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("davkit: encoding error: %s", e.Reason)
}

// TransportError wraps whatever the transport backend reported. The protocol
// layer never looks inside beyond "failed before a response was obtained".
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("davkit: transport failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is a well formed but unsuccessful outcome, either for a whole
// response or for one resource inside a multistatus.
type ProtocolError struct {
	Status  int
	Message string
}

func (e *ProtocolError) Error() string {
	if len(e.Message) == 0 {
		return fmt.Sprintf("davkit: status not ok, code:%d", e.Status)
	}
	return fmt.Sprintf("davkit: status not ok, code:%d, msg:%s", e.Status, e.Message)
}

// IsNotFound reports whether err is a ProtocolError with status 404.
func IsNotFound(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe) && pe.Status == 404
}
