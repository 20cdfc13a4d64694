package envelope

import (
	"errors"
	"fmt"
)

// DecodeError reports that an encrypted body could not be decoded or
// decrypted. It marks the response as unusable; it carries no business
// meaning.
type DecodeError struct {
	Op  string // "decode" or "decrypt"
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("envelope %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether any error in err's chain is a *DecodeError.
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}
