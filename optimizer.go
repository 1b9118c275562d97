package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// Stochastic gradient descent over a fixed parameter list.
//
// THE UPDATE RULE:
//
//	param -= lr · grad
//
// That one line is the entire learning algorithm; everything else in the
// repository exists to produce the grad it consumes.
//
// CONTRACTS (the caller's, not the framework's):
//   - ZeroGrad before each backward pass. Skipping it is defined behavior
//     (gradients accumulate additively across steps) but almost never what
//     you want.
//   - Step after a backward pass. A parameter with no accumulated gradient
//     is skipped - absent means zero contribution, not an error.
//
// Step and ZeroGrad cannot fail; the only rejectable input is a
// non-positive learning rate, caught at construction.
//
// ===========================================================================

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// SGD applies plain stochastic gradient descent to a set of parameters.
type SGD struct {
	params []*Parameter
	lr     float64
}

// NewSGD creates an SGD optimizer over the given parameters.
// The learning rate must be positive.
func NewSGD(params []*Parameter, lr float64) (*SGD, error) {
	if lr <= 0 {
		return nil, errors.Wrapf(ErrBadConfig, "sgd: learning rate must be positive, got %g", lr)
	}
	return &SGD{params: params, lr: lr}, nil
}

// LearningRate returns the fixed learning rate.
func (s *SGD) LearningRate() float64 {
	return s.lr
}

// ZeroGrad resets every tracked parameter's gradient accumulator.
// Call before each backward pass.
func (s *SGD) ZeroGrad() {
	for _, p := range s.params {
		p.ZeroGrad()
	}
}

// Step updates every tracked parameter in place: param -= lr · grad.
// Parameters with no accumulated gradient are skipped.
func (s *SGD) Step() {
	for _, p := range s.params {
		if p.Value.grad == nil {
			continue
		}
		floats.AddScaled(p.Value.data, -s.lr, p.Value.grad)
	}
}
