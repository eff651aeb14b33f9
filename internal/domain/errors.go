package domain

import "errors"

// Error taxonomy for the engine. All of these are fatal to the run that
// raised them; the core never retries internally.
var (
	// ErrDomain reports non-real-valued arithmetic, such as resampling a
	// return of -100% or worse over a fractional horizon.
	ErrDomain = errors.New("result is not a real number")

	// ErrInsufficientData reports a curve fit attempted with too few paired
	// samples.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidPrice reports a non-positive price in buy/sell arithmetic.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrMissingExternalData reports that an external collaborator (live
	// quote endpoint, regime classifier) could not supply required data.
	ErrMissingExternalData = errors.New("missing external data")
)
