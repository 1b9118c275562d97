package main

import (
	"errors"
	"testing"
)

// TestLinearForward checks y = xW + b on hand-set values.
func TestLinearForward(t *testing.T) {
	lin := NewLinear(2, 2, newModelRNG(1))
	copy(lin.weight.Value.data, []float64{
		1, 2,
		3, 4,
	})
	copy(lin.bias.Value.data, []float64{10, 20})

	x := NewTensorFrom([]float64{1, 1}, 1, 2)
	out, err := lin.Forward(nil, x)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}

	// y = [1*1+1*3+10, 1*2+1*4+20] = [14, 26]
	if out.At(0, 0) != 14 || out.At(0, 1) != 26 {
		t.Errorf("got [%g %g], want [14 26]", out.At(0, 0), out.At(0, 1))
	}
}

// TestLinearShapeMismatch verifies an input of the wrong width fails with
// the shape error rather than panicking.
func TestLinearShapeMismatch(t *testing.T) {
	lin := NewLinear(4, 3, newModelRNG(1))

	x := NewTensor(2, 5) // width 5 into a width-4 layer
	if _, err := lin.Forward(nil, x); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

// TestSequentialShapeMismatchSurfaces verifies the model's forward
// surfaces a mid-stack shape error to the caller.
func TestSequentialShapeMismatchSurfaces(t *testing.T) {
	model := NewMLP(4, []int{3}, 2, newModelRNG(1))

	x := NewTensor(1, 7)
	if _, err := model.Forward(nil, x); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

// TestMLPParameterOwnership verifies the composed model owns exactly the
// parameters of its linear layers, in layer order.
func TestMLPParameterOwnership(t *testing.T) {
	model := NewMLP(4, []int{3}, 2, newModelRNG(1))

	params := model.Parameters()
	if len(params) != 4 { // two Linear layers x (weight, bias)
		t.Fatalf("expected 4 parameters, got %d", len(params))
	}

	wantSizes := []int{4 * 3, 3, 3 * 2, 2}
	for i, p := range params {
		if p.Value.Size() != wantSizes[i] {
			t.Errorf("param %d (%s): size %d, want %d", i, p.Name, p.Value.Size(), wantSizes[i])
		}
	}
}

// TestXavierInitReproducible verifies a fixed seed reproduces the model
// bit for bit.
func TestXavierInitReproducible(t *testing.T) {
	a := NewLinear(8, 4, newModelRNG(99))
	b := NewLinear(8, 4, newModelRNG(99))

	for i := range a.weight.Value.data {
		if a.weight.Value.data[i] != b.weight.Value.data[i] {
			t.Fatal("same seed produced different weights")
		}
	}
	for _, v := range a.bias.Value.data {
		if v != 0 {
			t.Fatal("biases should initialize to zero")
		}
	}
}

// TestPredictArgmax verifies Predict returns the per-row argmax class.
func TestPredictArgmax(t *testing.T) {
	// Identity-ish single layer: logits equal the input row.
	lin := NewLinear(3, 3, newModelRNG(1))
	copy(lin.weight.Value.data, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	for i := range lin.bias.Value.data {
		lin.bias.Value.data[i] = 0
	}
	model := NewSequential(lin, LogSoftmaxLayer{})

	x := NewTensorFrom([]float64{
		0.1, 3.0, 0.2,
		5.0, 0.0, 1.0,
	}, 2, 3)

	preds, err := model.Predict(x)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if preds[0] != 1 || preds[1] != 0 {
		t.Errorf("preds = %v, want [1 0]", preds)
	}
}
