package health

import "fmt"

// CheckErrorKind classifies a failed health check
type CheckErrorKind string

const (
	CheckTransport CheckErrorKind = "transport"
	CheckDecode    CheckErrorKind = "decode"
)

// CheckError is returned when the health endpoint could not be reached or its
// body could not be decoded
type CheckError struct {
	Kind CheckErrorKind
	Err  error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("health check %s error: %v", e.Kind, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}
