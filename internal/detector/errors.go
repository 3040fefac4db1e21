package detector

import "errors"

var (
	// ErrInvalidConfig is returned by NewSCRFD for unusable parameters.
	ErrInvalidConfig = errors.New("invalid detector config")
	// ErrDimensionMismatch is returned when the image does not match the
	// model input size and auto resize is disabled.
	ErrDimensionMismatch = errors.New("image does not match model input size")
	// ErrOutputShape is returned when an engine output has an unexpected shape.
	ErrOutputShape = errors.New("unexpected model output shape")
)
