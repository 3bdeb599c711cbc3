package model

import "errors"

// Failure taxonomy. Collaborators wrap one of these so callers can branch
// with errors.Is regardless of transport.
var (
	ErrCapture      = errors.New("capture failed")
	ErrInference    = errors.New("inference failed")
	ErrValidation   = errors.New("validation failed")
	ErrTransmission = errors.New("transmission failed")
	ErrTraining     = errors.New("training failed")
	ErrDeployment   = errors.New("deployment failed")
	ErrInvalidInput = errors.New("invalid stage input")
)
