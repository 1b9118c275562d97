package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// This file implements the model: an ordered stack of layers ending in
// log-probabilities.
//
// INTENTION:
// A layer is a pure function from one activation tensor to the next,
// carrying zero or more trainable parameters. Layers compose sequentially;
// the composed model owns its parameters transitively and exposes one
// forward entry point. For a digit classifier the stack is
//
//	Linear(784→h) → ReLU → Linear(h→10) → LogSoftmax
//
// The LogSoftmax terminator means the model's output rows already satisfy
// Σ exp(output) = 1: they are log-probabilities, ready for NLLLoss.
//
// Forward takes an explicit *Tape. Pass a fresh tape when training (the
// tape records the operations backward needs) and nil when evaluating.
//
// ===========================================================================

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Parameter is a named, trainable tensor owned by exactly one layer.
// Its gradient accumulator is meaningful only between a backward pass
// and the optimizer step that follows it.
type Parameter struct {
	Name  string
	Value *Tensor
}

// Grad returns the parameter's accumulated gradient, or nil if none has
// been computed since the last reset.
func (p *Parameter) Grad() []float64 {
	return p.Value.grad
}

// ZeroGrad resets the gradient accumulator to the additive identity.
func (p *Parameter) ZeroGrad() {
	p.Value.ZeroGrad()
}

// Layer is one stage of the model: a pure input→output function plus the
// parameters it owns. Implementations record their operations on the tape
// when it is non-nil.
type Layer interface {
	Forward(tp *Tape, x *Tensor) (*Tensor, error)
	Parameters() []*Parameter
}

// ===========================================================================
// LINEAR
// ===========================================================================

// Linear is a fully connected layer computing y = xW + b.
//
// W has shape (in, out) and b has shape (out); input rows are feature
// vectors, so a batch of shape (N, in) produces (N, out).
type Linear struct {
	In, Out int

	weight *Parameter
	bias   *Parameter
}

// NewLinear creates a fully connected layer with Xavier-initialized
// weights and zero biases. Initialization draws from the caller's rng so
// a fixed seed reproduces the exact same model.
//
// Xavier scaling, stddev = sqrt(2 / (in + out)), keeps activation
// variance roughly constant layer to layer at the start of training.
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	if in <= 0 || out <= 0 {
		panic(fmt.Sprintf("layers: Linear dimensions must be positive, got (%d, %d)", in, out))
	}

	stddev := math.Sqrt(2.0 / float64(in+out))
	return &Linear{
		In:     in,
		Out:    out,
		weight: &Parameter{Name: "weight", Value: NewTensorRand(rng, stddev, in, out)},
		bias:   &Parameter{Name: "bias", Value: NewTensor(out)},
	}
}

// Forward computes y = xW + b for a batch x of shape (N, In).
// An input whose width does not match the layer fails with a shape
// mismatch - this is the one shape error a caller can cause from outside.
func (l *Linear) Forward(tp *Tape, x *Tensor) (*Tensor, error) {
	if len(x.shape) != 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "linear: want 2D input, got shape %v", x.Shape())
	}
	if x.shape[1] != l.In {
		return nil, errors.Wrapf(ErrShapeMismatch, "linear: input width %d does not match layer width %d", x.shape[1], l.In)
	}

	return tp.AddRows(tp.MatMul(x, l.weight.Value), l.bias.Value), nil
}

// Parameters returns the layer's weight and bias.
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weight, l.bias}
}

// ===========================================================================
// ACTIVATIONS
// ===========================================================================

// ReLULayer applies max(0, x) element-wise. It owns no parameters.
type ReLULayer struct{}

func (ReLULayer) Forward(tp *Tape, x *Tensor) (*Tensor, error) {
	return tp.ReLU(x), nil
}

func (ReLULayer) Parameters() []*Parameter { return nil }

// LogSoftmaxLayer converts raw scores to log-probabilities row-wise.
// It owns no parameters.
type LogSoftmaxLayer struct{}

func (LogSoftmaxLayer) Forward(tp *Tape, x *Tensor) (*Tensor, error) {
	if len(x.shape) != 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "logsoftmax: want 2D input, got shape %v", x.Shape())
	}
	return tp.LogSoftmax(x), nil
}

func (LogSoftmaxLayer) Parameters() []*Parameter { return nil }

// ===========================================================================
// SEQUENTIAL
// ===========================================================================

// Sequential composes layers in order. It is the Model: the single
// forward entry point and the transitive owner of every parameter.
type Sequential struct {
	layers []Layer
}

// NewSequential builds a model from the given layers.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{layers: layers}
}

// NewMLP builds the standard classifier stack for this repository:
// Linear→ReLU for each hidden width, then Linear→LogSoftmax into the
// class count.
func NewMLP(in int, hidden []int, classes int, rng *rand.Rand) *Sequential {
	var layers []Layer
	width := in
	for _, h := range hidden {
		layers = append(layers, NewLinear(width, h, rng), ReLULayer{})
		width = h
	}
	layers = append(layers, NewLinear(width, classes, rng), LogSoftmaxLayer{})
	return NewSequential(layers...)
}

// Forward runs the input through every layer in order. The first failing
// layer aborts the pass.
func (s *Sequential) Forward(tp *Tape, x *Tensor) (*Tensor, error) {
	out := x
	for i, layer := range s.layers {
		var err error
		out, err = layer.Forward(tp, out)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
	}
	return out, nil
}

// Parameters returns every trainable parameter in the model, in layer
// order. The slice aliases the live parameters: the optimizer mutates
// them in place.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, layer := range s.layers {
		params = append(params, layer.Parameters()...)
	}
	return params
}

// Predict returns the argmax class per row of the model's output,
// evaluated without gradient tracking.
func (s *Sequential) Predict(x *Tensor) ([]int, error) {
	logProbs, err := s.Forward(nil, x)
	if err != nil {
		return nil, err
	}

	batch, classes := logProbs.shape[0], logProbs.shape[1]
	preds := make([]int, batch)
	for i := 0; i < batch; i++ {
		row := logProbs.data[i*classes : (i+1)*classes]
		best := 0
		for j, v := range row {
			if v > row[best] {
				best = j
			}
		}
		preds[i] = best
	}
	return preds, nil
}
