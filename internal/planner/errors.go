package planner

import (
	"context"
	"errors"
	"fmt"
)

// Failure classes of a sync operation.
var (
	// ErrTransport means the remote call did not complete: the connection
	// failed, the request timed out or the server answered non-2xx.
	ErrTransport = errors.New("transport failure")
	// ErrMalformedResponse means a response arrived but lacked required
	// fields or reported success=false.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrValidation means a local precondition failed before any call.
	ErrValidation = errors.New("validation failure")
)

// Class names the failure class of err for logs and events.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrTransport),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return "transport"
	}
	return "unknown"
}

// checkAck folds a store call result into a single classified error.
func checkAck(ack *Ack, err error) error {
	if err != nil {
		if errors.Is(err, ErrTransport) || errors.Is(err, ErrMalformedResponse) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if ack == nil {
		return fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	if !ack.Success {
		msg := ack.Message
		if msg == "" {
			msg = "success=false"
		}
		return fmt.Errorf("%w: %s", ErrMalformedResponse, msg)
	}
	return nil
}
