package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// This file implements the tiny tensor type everything else is built on.
//
// INTENTION:
// A feed-forward classifier only needs a handful of dense operations:
// matrix multiply, a broadcast bias add, ReLU and a log-space softmax.
// We store values in a flat float64 slice in row-major order, exactly the
// layout BLAS libraries use, so every loop below walks memory sequentially.
//
// GRADIENTS:
// Each tensor can carry a gradient buffer of the same size. The buffer is
// allocated lazily on first accumulation: a tensor that never participates
// in a backward pass never pays for one, and the optimizer can tell
// "no gradient yet" (nil) apart from "gradient of zero".
//
// ERROR PHILOSOPHY:
// Index arithmetic and shape plumbing inside this package panic on misuse -
// those are programmer bugs. Mismatches a *user* can cause (feeding 784-wide
// images to a 100-wide layer, labels outside the class range) are returned
// as errors from the layer and loss entry points, not from here.
//
// ===========================================================================

import (
	"fmt"
	"math"
	"math/rand"
)

// Tensor is a multi-dimensional array of float64 values in row-major
// (C-contiguous) order.
//
// Tensor is not safe for concurrent use. The training loop in this
// repository is single-threaded by contract.
type Tensor struct {
	data  []float64 // Flat array storing all elements
	shape []int     // Dimensions, e.g. [batch, features]
	grad  []float64 // Gradient accumulator; nil until first accumulation
}

// NewTensor creates a tensor with the given shape, initialized to zero.
// Panics if shape is empty or contains non-positive dimensions.
func NewTensor(shape ...int) *Tensor {
	if len(shape) == 0 {
		panic("tensor: shape cannot be empty")
	}

	size := 1
	for i, dim := range shape {
		if dim <= 0 {
			panic(fmt.Sprintf("tensor: shape[%d] must be positive, got %d", i, dim))
		}
		size *= dim
	}

	shapeCopy := make([]int, len(shape))
	copy(shapeCopy, shape)

	return &Tensor{
		data:  make([]float64, size),
		shape: shapeCopy,
	}
}

// NewTensorFrom creates a tensor with the given shape and copies values in.
// Panics if the value count does not match the shape.
func NewTensorFrom(values []float64, shape ...int) *Tensor {
	t := NewTensor(shape...)
	if len(values) != len(t.data) {
		panic(fmt.Sprintf("tensor: %d values do not fill shape %v", len(values), shape))
	}
	copy(t.data, values)
	return t
}

// NewTensorRand creates a tensor with values drawn from a normal
// distribution with the given standard deviation, using the caller's
// rng so initialization is reproducible per seed.
//
// Uses the Box-Muller transform: two uniform samples become two
// independent standard normal samples.
func NewTensorRand(rng *rand.Rand, stddev float64, shape ...int) *Tensor {
	t := NewTensor(shape...)

	for i := 0; i < len(t.data); i += 2 {
		u1, u2 := rng.Float64(), rng.Float64()
		mag := stddev * math.Sqrt(-2*math.Log(u1))

		t.data[i] = mag * math.Cos(2*math.Pi*u2)
		if i+1 < len(t.data) {
			t.data[i+1] = mag * math.Sin(2*math.Pi*u2)
		}
	}

	return t
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() []int {
	shape := make([]int, len(t.shape))
	copy(shape, t.shape)
	return shape
}

// Size returns the total number of elements.
func (t *Tensor) Size() int {
	return len(t.data)
}

// At returns the element at the given indices. Panics on invalid indices.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.flatIndex(indices)]
}

// Set sets the element at the given indices. Panics on invalid indices.
func (t *Tensor) Set(value float64, indices ...int) {
	t.data[t.flatIndex(indices)] = value
}

// flatIndex converts multi-dimensional indices to a flat row-major index.
func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: expected %d indices, got %d", len(t.shape), len(indices)))
	}

	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index[%d]=%d out of bounds [0,%d)", i, indices[i], t.shape[i]))
		}
		idx += indices[i] * stride
		stride *= t.shape[i]
	}
	return idx
}

// Clone creates a deep copy of the tensor, including any gradient.
func (t *Tensor) Clone() *Tensor {
	clone := NewTensor(t.shape...)
	copy(clone.data, t.data)
	if t.grad != nil {
		clone.grad = make([]float64, len(t.grad))
		copy(clone.grad, t.grad)
	}
	return clone
}

// String returns a short description for debugging.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, size=%d)", t.shape, len(t.data))
}

// ZeroGrad resets the gradient accumulator to the additive identity.
// A tensor whose gradient was never allocated stays that way; the
// optimizer treats both states as "nothing to apply yet".
func (t *Tensor) ZeroGrad() {
	for i := range t.grad {
		t.grad[i] = 0
	}
}

// AccumulateGrad adds grad's values into the tensor's gradient buffer,
// allocating it on first use. Accumulation is additive: calling backward
// twice without a reset doubles the gradient, which is the documented
// caller contract, not a bug.
func (t *Tensor) AccumulateGrad(grad *Tensor) {
	if !shapeEqual(t.shape, grad.shape) {
		panic(fmt.Sprintf("tensor: cannot accumulate gradient of shape %v into %v", grad.shape, t.shape))
	}
	if t.grad == nil {
		t.grad = make([]float64, len(t.data))
	}
	for i := range t.grad {
		t.grad[i] += grad.data[i]
	}
}

// gradView wraps the gradient buffer in a Tensor so backward rules can
// treat it like any other operand. Returns nil if no gradient has been
// accumulated, which backward rules interpret as all zeros.
func (t *Tensor) gradView() *Tensor {
	if t.grad == nil {
		return nil
	}
	return &Tensor{data: t.grad, shape: t.shape}
}

// ===========================================================================
// OPERATIONS
// ===========================================================================

// Add performs element-wise addition: out = a + b.
// Panics if shapes don't match.
func Add(a, b *Tensor) *Tensor {
	if !shapeEqual(a.shape, b.shape) {
		panic(fmt.Sprintf("tensor: cannot add shapes %v and %v", a.shape, b.shape))
	}

	out := NewTensor(a.shape...)
	for i := range out.data {
		out.data[i] = a.data[i] + b.data[i]
	}
	return out
}

// Scale multiplies all elements by a scalar: out = a * scalar.
func Scale(a *Tensor, scalar float64) *Tensor {
	out := NewTensor(a.shape...)
	for i := range out.data {
		out.data[i] = a.data[i] * scalar
	}
	return out
}

// MatMul performs matrix multiplication: C = A @ B.
// A must be (M, K), B must be (K, N), result is (M, N).
//
// The k-j loop order keeps the inner loop walking both B and C
// sequentially, which matters even at MNIST sizes.
func MatMul(a, b *Tensor) *Tensor {
	if len(a.shape) != 2 || len(b.shape) != 2 {
		panic("tensor: MatMul requires 2D tensors")
	}
	if a.shape[1] != b.shape[0] {
		panic(fmt.Sprintf("tensor: cannot multiply shapes %v and %v", a.shape, b.shape))
	}

	m, k, n := a.shape[0], a.shape[1], b.shape[1]
	out := NewTensor(m, n)

	for i := 0; i < m; i++ {
		aRow := a.data[i*k : (i+1)*k]
		outRow := out.data[i*n : (i+1)*n]
		for kk := 0; kk < k; kk++ {
			av := aRow[kk]
			bRow := b.data[kk*n : (kk+1)*n]
			for j := 0; j < n; j++ {
				outRow[j] += av * bRow[j]
			}
		}
	}

	return out
}

// Transpose returns the transpose of a 2D matrix: A^T.
func Transpose(a *Tensor) *Tensor {
	if len(a.shape) != 2 {
		panic("tensor: Transpose requires 2D tensor")
	}

	m, n := a.shape[0], a.shape[1]
	out := NewTensor(n, m)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			out.data[j*m+i] = a.data[i*n+j]
		}
	}
	return out
}

// AddRows adds a row vector to every row of a matrix: out[i,:] = x[i,:] + b.
// This is the bias broadcast in y = xW + b.
// Panics if b's length does not match x's row width.
func AddRows(x, b *Tensor) *Tensor {
	if len(x.shape) != 2 || len(b.shape) != 1 {
		panic("tensor: AddRows requires a 2D matrix and a 1D vector")
	}
	if x.shape[1] != b.shape[0] {
		panic(fmt.Sprintf("tensor: cannot broadcast %v over rows of %v", b.shape, x.shape))
	}

	rows, cols := x.shape[0], x.shape[1]
	out := NewTensor(rows, cols)
	for i := 0; i < rows; i++ {
		row := x.data[i*cols : (i+1)*cols]
		outRow := out.data[i*cols : (i+1)*cols]
		for j := range row {
			outRow[j] = row[j] + b.data[j]
		}
	}
	return out
}

// Softmax applies the softmax function row-wise: p_i = exp(x_i) / Σ exp(x_j).
//
// Numerically stable version: subtract the row max before exponentiating
// so no exp overflows. Only 2D (batch, classes) tensors are supported.
func Softmax(x *Tensor) *Tensor {
	if len(x.shape) != 2 {
		panic("tensor: Softmax requires 2D tensor")
	}

	batch, classes := x.shape[0], x.shape[1]
	out := NewTensor(batch, classes)

	for b := 0; b < batch; b++ {
		row := x.data[b*classes : (b+1)*classes]
		outRow := out.data[b*classes : (b+1)*classes]

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		sum := 0.0
		for j, v := range row {
			e := math.Exp(v - maxVal)
			outRow[j] = e
			sum += e
		}
		for j := range outRow {
			outRow[j] /= sum
		}
	}

	return out
}

// ===========================================================================
// HELPERS
// ===========================================================================

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
