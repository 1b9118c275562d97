package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// This file implements reverse-mode automatic differentiation with a
// gradient tape.
//
// INTENTION:
// During the forward pass every differentiable operation appends one node
// to the tape: the node remembers the operation's output and a closure
// that knows how to push a gradient from that output back to the inputs.
// The tape is therefore an arena of nodes in creation order - a flattened
// view of the computation DAG, with no reference cycles to chase.
//
// Backward() seeds dLoss/dLoss = 1 and walks the arena in reverse. Because
// an operation's inputs are always created before its output, reverse
// creation order is a valid topological order: by the time a node runs,
// the gradient of its output is complete.
//
// THE CHAIN RULE:
//
// Given y = f(x) and L = g(y), backpropagation computes
//
//   dL/dx = dL/dy · dy/dx
//
// Each node implements exactly one dy/dx rule; the tape composes them.
//
// MODES:
// There is no global "gradients enabled" switch. Recording is controlled
// by which tape you pass: a nil *Tape means evaluate only, record nothing.
// All tape methods are nil-receiver safe for exactly this reason.
//
// LIFECYCLE:
// A tape is built once per forward pass and consumed exactly once by
// Backward; a second Backward on the same tape is an error. Gradients
// accumulate additively into tensors, so running several fresh tapes
// without zeroing parameter gradients sums their contributions - that is
// the documented caller contract (zero, then backward, then step).
//
// ===========================================================================

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Tape records differentiable operations for one forward pass.
// The zero value is ready to use; a nil *Tape disables recording.
type Tape struct {
	nodes []tapeNode
	spent bool
}

type tapeNode struct {
	out      *Tensor
	backward func(gradOut *Tensor)
}

// NewTape creates an empty gradient tape.
func NewTape() *Tape {
	return &Tape{}
}

// Len reports how many operations have been recorded.
func (tp *Tape) Len() int {
	if tp == nil {
		return 0
	}
	return len(tp.nodes)
}

// record appends one operation node. No-op on a nil tape.
func (tp *Tape) record(out *Tensor, backward func(gradOut *Tensor)) {
	if tp == nil {
		return
	}
	tp.nodes = append(tp.nodes, tapeNode{out: out, backward: backward})
}

// Backward propagates gradients from the scalar loss back through every
// recorded operation, accumulating into each participating tensor's
// gradient buffer. The tape is consumed: calling Backward twice on the
// same tape is an error.
func (tp *Tape) Backward(loss *Tensor) error {
	if tp == nil {
		return errors.New("autograd: cannot run backward without a tape")
	}
	if tp.spent {
		return errors.New("autograd: tape already consumed by a previous backward pass")
	}
	if loss.Size() != 1 {
		return errors.Errorf("autograd: backward must be seeded from a scalar, got %v", loss.Shape())
	}
	tp.spent = true

	// Seed: dLoss/dLoss = 1.
	seed := NewTensor(loss.shape...)
	seed.data[0] = 1
	loss.AccumulateGrad(seed)

	// Reverse creation order is a topological order of the DAG.
	for i := len(tp.nodes) - 1; i >= 0; i-- {
		node := tp.nodes[i]
		gradOut := node.out.gradView()
		if gradOut == nil {
			// Output did not contribute to the loss; nothing to push back.
			continue
		}
		node.backward(gradOut)
	}

	return nil
}

// ===========================================================================
// TAPED OPERATIONS
// ===========================================================================
//
// Each method computes the forward result and, when the tape is non-nil,
// records the matching backward rule. Layers call these instead of the raw
// tensor ops so the same code path serves training and inference.

// MatMul computes C = A @ B and records its gradient rule.
//
// Backward, given gradC = dL/dC:
//
//	dL/dA = gradC @ B^T
//	dL/dB = A^T @ gradC
//
// Derivation: C[i,j] = Σ_k A[i,k]·B[k,j], so dC[i,j]/dA[i,k] = B[k,j];
// summing over j gives (gradC @ B^T)[i,k].
func (tp *Tape) MatMul(a, b *Tensor) *Tensor {
	out := MatMul(a, b)
	tp.record(out, func(gradOut *Tensor) {
		gradA, gradB := MatMulBackward(a, b, gradOut)
		a.AccumulateGrad(gradA)
		b.AccumulateGrad(gradB)
	})
	return out
}

// AddRows computes out[i,:] = x[i,:] + b and records its gradient rule.
//
// Backward: the matrix input receives gradOut unchanged; the broadcast
// vector receives the column sums of gradOut, one contribution per row
// it was added to.
func (tp *Tape) AddRows(x, b *Tensor) *Tensor {
	out := AddRows(x, b)
	tp.record(out, func(gradOut *Tensor) {
		x.AccumulateGrad(gradOut)
		b.AccumulateGrad(AddRowsBackward(gradOut))
	})
	return out
}

// ReLU computes out = max(0, x) element-wise and records its gradient rule.
func (tp *Tape) ReLU(x *Tensor) *Tensor {
	out := NewTensor(x.shape...)
	for i, v := range x.data {
		if v > 0 {
			out.data[i] = v
		}
	}
	tp.record(out, func(gradOut *Tensor) {
		x.AccumulateGrad(ReLUBackward(x, gradOut))
	})
	return out
}

// LogSoftmax computes row-wise log-probabilities:
//
//	out[i,j] = x[i,j] - log Σ_k exp(x[i,k])
//
// The normalization happens entirely in log space (log-sum-exp), so the
// result is safe to feed to a negative-log-likelihood loss without ever
// materializing probabilities near 0 or 1.
func (tp *Tape) LogSoftmax(x *Tensor) *Tensor {
	if len(x.shape) != 2 {
		panic("autograd: LogSoftmax requires 2D tensor")
	}

	batch, classes := x.shape[0], x.shape[1]
	out := NewTensor(batch, classes)
	for i := 0; i < batch; i++ {
		row := x.data[i*classes : (i+1)*classes]
		lse := floats.LogSumExp(row)
		outRow := out.data[i*classes : (i+1)*classes]
		for j, v := range row {
			outRow[j] = v - lse
		}
	}

	tp.record(out, func(gradOut *Tensor) {
		x.AccumulateGrad(LogSoftmaxBackward(out, gradOut))
	})
	return out
}

// ===========================================================================
// BACKWARD RULES
// ===========================================================================

// MatMulBackward computes gradients for matrix multiplication.
//
// Given C = A @ B and gradC = dL/dC:
//
//	gradA = gradC @ B^T
//	gradB = A^T @ gradC
func MatMulBackward(a, b, gradC *Tensor) (gradA, gradB *Tensor) {
	gradA = MatMul(gradC, Transpose(b))
	gradB = MatMul(Transpose(a), gradC)
	return gradA, gradB
}

// AddRowsBackward reduces a matrix gradient to the broadcast vector's
// gradient by summing over rows.
func AddRowsBackward(gradOut *Tensor) *Tensor {
	rows, cols := gradOut.shape[0], gradOut.shape[1]
	grad := NewTensor(cols)
	for i := 0; i < rows; i++ {
		floats.Add(grad.data, gradOut.data[i*cols:(i+1)*cols])
	}
	return grad
}

// ReLUBackward passes gradients through where the input was positive.
//
// Derivation: y[i] = max(0, x[i]), so dy[i]/dx[i] is 1 for x[i] > 0
// and 0 otherwise.
func ReLUBackward(x, gradY *Tensor) *Tensor {
	gradX := NewTensor(x.shape...)
	for i := range x.data {
		if x.data[i] > 0 {
			gradX.data[i] = gradY.data[i]
		}
	}
	return gradX
}

// LogSoftmaxBackward computes the input gradient from the *output*
// log-probabilities (not the raw scores - exp(y) is exactly softmax(x),
// so nothing needs recomputing).
//
// Derivation: y[j] = x[j] - logΣexp(x), so
//
//	dy[j]/dx[k] = δ[j,k] - softmax(x)[k]
//	gradX[k] = gradY[k] - softmax(x)[k] · Σ_j gradY[j]
func LogSoftmaxBackward(y, gradY *Tensor) *Tensor {
	batch, classes := y.shape[0], y.shape[1]
	gradX := NewTensor(batch, classes)

	for i := 0; i < batch; i++ {
		yRow := y.data[i*classes : (i+1)*classes]
		gRow := gradY.data[i*classes : (i+1)*classes]
		outRow := gradX.data[i*classes : (i+1)*classes]

		gradSum := floats.Sum(gRow)
		for j := range outRow {
			outRow[j] = gRow[j] - math.Exp(yRow[j])*gradSum
		}
	}

	return gradX
}
