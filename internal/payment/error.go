package payment

import "errors"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
	ErrMissingMetadata  = errors.New("missing checkout metadata")
	ErrInvalidMetadata  = errors.New("invalid checkout metadata")
	ErrMetadataTooLarge = errors.New("checkout metadata value too large")
	ErrProvider         = errors.New("payment provider error")
)
