package admob

import "errors"

var (
	// ErrInvalidPublisherID is returned for ids that are not "pub-<digits>".
	ErrInvalidPublisherID = errors.New("invalid publisher id")

	// ErrAuth is returned when no usable AdMob credentials could be built.
	ErrAuth = errors.New("admob authentication failed")

	// ErrMalformedResponse is returned when a report response breaks the
	// header, rows, footer contract.
	ErrMalformedResponse = errors.New("malformed network report response")
)
