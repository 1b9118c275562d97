package main

import "errors"

// Sentinel errors for the failure modes a caller can actually hit.
// Everything else (bad indices into tensors, malformed shapes constructed
// inside this package) is a programmer error and panics instead.
//
// Callers match these with errors.Is; context is layered on top with
// github.com/pkg/errors so the match survives wrapping.
var (
	// ErrShapeMismatch indicates an input whose dimensions do not fit the
	// operation or layer it was given to.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrIndexOutOfRange indicates a class label outside [0, C).
	ErrIndexOutOfRange = errors.New("label index out of range")

	// ErrBadConfig indicates an invalid hyperparameter or an unusable
	// data source, reported at construction time.
	ErrBadConfig = errors.New("invalid configuration")
)
