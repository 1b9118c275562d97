package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// Negative log likelihood over log-probabilities and integer labels.
//
// For N examples and C classes:
//
//	loss = -(1/N) · Σ_i logProbs[i, labels[i]]
//
// The model's LogSoftmax terminator already normalized in log space, so
// this loss is a plain gather-and-average: the log never sees a raw
// probability that could have underflowed to 0. Together the two pieces
// are the numerically stable form of cross-entropy.
//
// Labels are validated before anything is recorded on the tape, so an
// out-of-range label aborts the step with no side effects.
//
// ===========================================================================

import (
	"github.com/pkg/errors"
)

// NLLLoss computes the mean negative log likelihood of the true labels
// under the model's log-probabilities, returning it as a scalar tensor
// recorded on the tape.
//
// Backward rule: only the gathered entries carry gradient,
//
//	dLoss/dlogProbs[i, labels[i]] = -1/N
//
// scaled by the incoming gradient of the scalar.
func NLLLoss(tp *Tape, logProbs *Tensor, labels []int) (*Tensor, error) {
	if len(logProbs.shape) != 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "nll: want 2D log-probabilities, got shape %v", logProbs.Shape())
	}

	batch, classes := logProbs.shape[0], logProbs.shape[1]
	if len(labels) != batch {
		return nil, errors.Wrapf(ErrShapeMismatch, "nll: %d labels for batch of %d", len(labels), batch)
	}
	for i, label := range labels {
		if label < 0 || label >= classes {
			return nil, errors.Wrapf(ErrIndexOutOfRange, "nll: labels[%d] = %d, want [0, %d)", i, label, classes)
		}
	}

	total := 0.0
	for i, label := range labels {
		total += logProbs.data[i*classes+label]
	}

	loss := NewTensor(1)
	loss.data[0] = -total / float64(batch)

	// Copy the labels so later mutation by the caller cannot skew backward.
	gathered := make([]int, len(labels))
	copy(gathered, labels)

	tp.record(loss, func(gradOut *Tensor) {
		gradLP := NewTensor(batch, classes)
		scale := -gradOut.data[0] / float64(batch)
		for i, label := range gathered {
			gradLP.data[i*classes+label] = scale
		}
		logProbs.AccumulateGrad(gradLP)
	})

	return loss, nil
}
