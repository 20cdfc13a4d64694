package dispatch

import (
	"errors"
	"fmt"
)

// TransportError reports a failure at the HTTP layer: connection errors,
// timeouts, non-2xx responses, or a response body that is not the
// expected envelope JSON. It is distinct from envelope.DecodeError, which
// means the transport succeeded but the payload could not be decrypted.
type TransportError struct {
	Op         string
	StatusCode int // zero when the request never produced a response
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether any error in err's chain is a
// *TransportError.
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
