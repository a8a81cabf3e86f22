// internal/status/errors.go
package status

import "errors"

// CodeGeneric is reported for failures that carry no code of their own.
const CodeGeneric uint16 = 1

// Coder is implemented by failures that know their last-error code.
type Coder interface {
	Code() uint16
}

// ErrorCode returns the code of the first Coder in err's chain.
// nil maps to 0.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeGeneric
}
