package pipes

import "fmt"

// CensusErrorKind classifies a failed pipe census
type CensusErrorKind string

const (
	CensusTransport CensusErrorKind = "transport"
	CensusStatus    CensusErrorKind = "status"
	CensusDecode    CensusErrorKind = "decode"
)

// CensusError is returned when the pipe list could not be fetched or decoded
type CensusError struct {
	Kind       CensusErrorKind
	StatusCode int
	Err        error
}

func (e *CensusError) Error() string {
	return fmt.Sprintf("pipe census %s error: %v", e.Kind, e.Err)
}

func (e *CensusError) Unwrap() error {
	return e.Err
}
