package event

import "errors"

var (
	ErrBusClosed               = errors.New("event bus is closed")
	ErrNoHandlers              = errors.New("no handlers registered for event")
	ErrEventSourceNil          = errors.New("event source is nil")
	ErrUnexpectedPayload       = errors.New("unexpected event payload type")
	ErrProcessorAlreadyStarted = errors.New("processor already started")
	ErrProcessorNotStarted     = errors.New("processor not started")
	ErrProcessorNotRunning     = errors.New("processor is not running")
	ErrHealthcheckFailed       = errors.New("event processor healthcheck failed")
)
