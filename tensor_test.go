package main

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestTensorBasics tests basic tensor creation and access.
func TestTensorBasics(t *testing.T) {
	tensor := NewTensor(2, 3)

	if s := tensor.Shape(); len(s) != 2 || s[0] != 2 || s[1] != 3 {
		t.Errorf("expected shape [2 3], got %v", s)
	}
	if tensor.Size() != 6 {
		t.Errorf("expected size 6, got %d", tensor.Size())
	}

	tensor.Set(1.5, 0, 0)
	tensor.Set(2.5, 1, 2)

	if v := tensor.At(0, 0); v != 1.5 {
		t.Errorf("expected 1.5, got %f", v)
	}
	if v := tensor.At(1, 2); v != 2.5 {
		t.Errorf("expected 2.5, got %f", v)
	}
}

// TestMatMul tests matrix multiplication against hand-computed values.
func TestMatMul(t *testing.T) {
	a := NewTensorFrom([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	b := NewTensorFrom([]float64{1, 2, 3, 4, 5, 6}, 3, 2)

	c := MatMul(a, b)

	if s := c.Shape(); s[0] != 2 || s[1] != 2 {
		t.Fatalf("expected shape [2 2], got %v", s)
	}

	// C[0,0] = 1*1 + 2*3 + 3*5 = 22
	// C[0,1] = 1*2 + 2*4 + 3*6 = 28
	// C[1,0] = 4*1 + 5*3 + 6*5 = 49
	// C[1,1] = 4*2 + 5*4 + 6*6 = 64
	expected := [][]float64{{22, 28}, {49, 64}}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if v := c.At(i, j); v != expected[i][j] {
				t.Errorf("C[%d,%d]: expected %f, got %f", i, j, expected[i][j], v)
			}
		}
	}
}

// TestMatMulAgainstGonum cross-checks our multiply against mat.Dense on
// random matrices.
func TestMatMulAgainstGonum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	a := NewTensorRand(rng, 1.0, 7, 5)
	b := NewTensorRand(rng, 1.0, 5, 4)
	c := MatMul(a, b)

	ga := mat.NewDense(7, 5, a.data)
	gb := mat.NewDense(5, 4, b.data)
	var gc mat.Dense
	gc.Mul(ga, gb)

	for i := 0; i < 7; i++ {
		for j := 0; j < 4; j++ {
			if diff := math.Abs(c.At(i, j) - gc.At(i, j)); diff > 1e-12 {
				t.Errorf("C[%d,%d] differs from gonum by %g", i, j, diff)
			}
		}
	}
}

// TestTranspose tests matrix transpose.
func TestTranspose(t *testing.T) {
	a := NewTensorFrom([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	aT := Transpose(a)

	if s := aT.Shape(); s[0] != 3 || s[1] != 2 {
		t.Fatalf("expected shape [3 2], got %v", s)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			if aT.At(j, i) != a.At(i, j) {
				t.Errorf("transpose mismatch at (%d,%d)", i, j)
			}
		}
	}
}

// TestAddRows tests the bias broadcast.
func TestAddRows(t *testing.T) {
	x := NewTensorFrom([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	b := NewTensorFrom([]float64{10, 20, 30}, 3)

	out := AddRows(x, b)

	expected := []float64{11, 22, 33, 14, 25, 36}
	for i, want := range expected {
		if out.data[i] != want {
			t.Errorf("out.data[%d]: expected %f, got %f", i, want, out.data[i])
		}
	}
}

// TestSoftmaxRowsSumToOne verifies softmax produces probability rows.
func TestSoftmaxRowsSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := NewTensorRand(rng, 3.0, 4, 6)

	p := Softmax(x)

	for i := 0; i < 4; i++ {
		sum := 0.0
		for j := 0; j < 6; j++ {
			v := p.At(i, j)
			if v < 0 || v > 1 {
				t.Errorf("p[%d,%d] = %f outside [0,1]", i, j, v)
			}
			sum += v
		}
		if math.Abs(sum-1.0) > 1e-12 {
			t.Errorf("row %d sums to %f, want 1", i, sum)
		}
	}
}

// TestAddAndScale covers the element-wise helpers.
func TestAddAndScale(t *testing.T) {
	a := NewTensorFrom([]float64{1, 2, 3}, 3)
	b := NewTensorFrom([]float64{10, 20, 30}, 3)

	sum := Add(a, b)
	for i, want := range []float64{11, 22, 33} {
		if sum.data[i] != want {
			t.Errorf("sum[%d]: expected %f, got %f", i, want, sum.data[i])
		}
	}

	scaled := Scale(a, -2)
	for i, want := range []float64{-2, -4, -6} {
		if scaled.data[i] != want {
			t.Errorf("scaled[%d]: expected %f, got %f", i, want, scaled.data[i])
		}
	}
}

// TestGradientLifecycle verifies lazy allocation, accumulation and reset
// of gradient buffers.
func TestGradientLifecycle(t *testing.T) {
	x := NewTensor(2, 2)

	// No gradient until something accumulates one.
	if x.grad != nil {
		t.Fatal("fresh tensor should have nil gradient")
	}
	x.ZeroGrad()
	if x.grad != nil {
		t.Fatal("ZeroGrad on a fresh tensor should not allocate")
	}

	g := NewTensorFrom([]float64{1, 2, 3, 4}, 2, 2)
	x.AccumulateGrad(g)
	x.AccumulateGrad(g)

	// Accumulation is additive.
	for i, want := range []float64{2, 4, 6, 8} {
		if x.grad[i] != want {
			t.Errorf("grad[%d]: expected %f, got %f", i, want, x.grad[i])
		}
	}

	// Reset restores the additive identity without deallocating.
	x.ZeroGrad()
	for i, v := range x.grad {
		if v != 0 {
			t.Errorf("grad[%d] = %f after ZeroGrad, want 0", i, v)
		}
	}
}

// TestCloneIndependence verifies Clone copies both values and gradient.
func TestCloneIndependence(t *testing.T) {
	x := NewTensorFrom([]float64{1, 2}, 2)
	x.AccumulateGrad(NewTensorFrom([]float64{5, 5}, 2))

	c := x.Clone()
	c.Set(99, 0)
	c.grad[0] = 99

	if x.At(0) != 1 || x.grad[0] != 5 {
		t.Error("mutating a clone leaked into the original")
	}
}
