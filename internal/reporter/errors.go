package reporter

import "fmt"

// DeliveryErrorKind classifies a failed delivery
type DeliveryErrorKind string

const (
	DeliveryTransport      DeliveryErrorKind = "transport"
	DeliveryRemoteRejected DeliveryErrorKind = "remote_rejected"
)

// DeliveryError is returned by SendEvent when the collector could not be
// reached or answered with a non-2xx status
type DeliveryError struct {
	Kind       DeliveryErrorKind
	Event      string
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Kind == DeliveryRemoteRejected {
		return fmt.Sprintf("collector rejected event %q: status %d: %s", e.Event, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("failed to deliver event %q: %v", e.Event, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
