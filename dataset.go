package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// The data source: a finite, in-memory set of labeled feature vectors,
// batched with a fresh shuffle each epoch.
//
// Two loaders are provided:
//
//   - LoadMNIST reads the classic IDX files (train-images-idx3-ubyte and
//     friends, gzipped or not) and normalizes pixels to [0, 1].
//   - NewSyntheticDataset generates Gaussian class blobs so the training
//     demo and the tests run without downloading anything.
//
// Batching contract: one call to Batches is one epoch. Order is shuffled
// by the caller's rng; given a fixed shuffle, the partition of examples
// into batches is deterministic. Every example appears exactly once per
// epoch (the final batch may be short).
//
// ===========================================================================

import (
	"compress/gzip"
	"encoding/binary"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Batch is one training batch: a (N, features) input matrix and the N
// integer class labels that go with it.
type Batch struct {
	Inputs *Tensor
	Labels []int
}

// Dataset holds labeled examples in memory.
type Dataset struct {
	features [][]float64
	labels   []int
	classes  int
}

// NewDataset builds a dataset from parallel feature and label slices.
// Labels must lie in [0, classes); features must be non-empty and of
// uniform width.
func NewDataset(features [][]float64, labels []int, classes int) (*Dataset, error) {
	if len(features) == 0 {
		return nil, errors.Wrap(ErrBadConfig, "dataset: no examples")
	}
	if len(features) != len(labels) {
		return nil, errors.Wrapf(ErrBadConfig, "dataset: %d feature rows but %d labels", len(features), len(labels))
	}
	if classes <= 0 {
		return nil, errors.Wrapf(ErrBadConfig, "dataset: class count must be positive, got %d", classes)
	}

	width := len(features[0])
	for i, row := range features {
		if len(row) != width {
			return nil, errors.Wrapf(ErrShapeMismatch, "dataset: row %d has width %d, want %d", i, len(row), width)
		}
	}
	for i, label := range labels {
		if label < 0 || label >= classes {
			return nil, errors.Wrapf(ErrIndexOutOfRange, "dataset: labels[%d] = %d, want [0, %d)", i, label, classes)
		}
	}

	return &Dataset{features: features, labels: labels, classes: classes}, nil
}

// Len returns the number of examples.
func (d *Dataset) Len() int { return len(d.features) }

// Classes returns the number of distinct labels.
func (d *Dataset) Classes() int { return d.classes }

// FeatureWidth returns the per-example feature count.
func (d *Dataset) FeatureWidth() int { return len(d.features[0]) }

// Batches shuffles the dataset with the given rng and partitions it into
// batches of batchSize (the last batch may be smaller). Each call is one
// epoch; calling again restarts the pass with a new shuffle.
func (d *Dataset) Batches(batchSize int, rng *rand.Rand) []Batch {
	if batchSize <= 0 {
		panic("dataset: batch size must be positive")
	}

	perm := rng.Perm(len(d.features))
	width := d.FeatureWidth()

	var batches []Batch
	for start := 0; start < len(perm); start += batchSize {
		end := start + batchSize
		if end > len(perm) {
			end = len(perm)
		}

		n := end - start
		inputs := NewTensor(n, width)
		labels := make([]int, n)
		for i, idx := range perm[start:end] {
			copy(inputs.data[i*width:(i+1)*width], d.features[idx])
			labels[i] = d.labels[idx]
		}
		batches = append(batches, Batch{Inputs: inputs, Labels: labels})
	}

	return batches
}

// Split partitions the dataset into two halves at the given example count
// (head, tail). Used to carve a validation set off the training data.
func (d *Dataset) Split(n int) (*Dataset, *Dataset, error) {
	if n <= 0 || n >= len(d.features) {
		return nil, nil, errors.Wrapf(ErrBadConfig, "dataset: cannot split %d examples at %d", len(d.features), n)
	}
	head := &Dataset{features: d.features[:n], labels: d.labels[:n], classes: d.classes}
	tail := &Dataset{features: d.features[n:], labels: d.labels[n:], classes: d.classes}
	return head, tail, nil
}

// ===========================================================================
// MNIST (IDX FORMAT)
// ===========================================================================

const (
	idxMagicImages = 2051 // 0x00000803: unsigned byte, 3 dimensions
	idxMagicLabels = 2049 // 0x00000801: unsigned byte, 1 dimension
	mnistClasses   = 10
)

// LoadMNIST reads the four standard MNIST files from dir and returns the
// training and test datasets. Files may be raw or gzipped (the common
// download form, e.g. train-images-idx3-ubyte.gz). Pixels are scaled to
// [0, 1]; images are flattened to 784-wide rows.
func LoadMNIST(dir string) (train, test *Dataset, err error) {
	train, err = loadMNISTPair(
		filepath.Join(dir, "train-images-idx3-ubyte"),
		filepath.Join(dir, "train-labels-idx1-ubyte"),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "mnist: training set")
	}

	test, err = loadMNISTPair(
		filepath.Join(dir, "t10k-images-idx3-ubyte"),
		filepath.Join(dir, "t10k-labels-idx1-ubyte"),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "mnist: test set")
	}

	return train, test, nil
}

func loadMNISTPair(imagePath, labelPath string) (*Dataset, error) {
	images, err := readIDXImages(imagePath)
	if err != nil {
		return nil, err
	}
	labels, err := readIDXLabels(labelPath)
	if err != nil {
		return nil, err
	}
	if len(images) != len(labels) {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d images but %d labels", len(images), len(labels))
	}
	return NewDataset(images, labels, mnistClasses)
}

// openIDX opens path, or path + ".gz" with transparent decompression.
func openIDX(path string) (io.ReadCloser, error) {
	if f, err := os.Open(path); err == nil {
		return f, nil
	}

	f, err := os.Open(path + ".gz")
	if err != nil {
		return nil, errors.Wrapf(err, "open %s(.gz)", path)
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "gunzip %s.gz", path)
	}
	return &gzipFile{zr: zr, f: f}, nil
}

type gzipFile struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipFile) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipFile) Close() error {
	zerr := g.zr.Close()
	ferr := g.f.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}

func readIDXImages(path string) ([][]float64, error) {
	r, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var header struct {
		Magic, Count, Rows, Cols uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrapf(err, "read %s header", path)
	}
	if header.Magic != idxMagicImages {
		return nil, errors.Errorf("%s: bad magic %d, want %d", path, header.Magic, idxMagicImages)
	}

	pixels := int(header.Rows * header.Cols)
	buf := make([]byte, pixels)
	images := make([][]float64, header.Count)
	for i := range images {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrapf(err, "read %s image %d", path, i)
		}
		row := make([]float64, pixels)
		for j, b := range buf {
			row[j] = float64(b) / 255.0
		}
		images[i] = row
	}

	return images, nil
}

func readIDXLabels(path string) ([]int, error) {
	r, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var header struct {
		Magic, Count uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrapf(err, "read %s header", path)
	}
	if header.Magic != idxMagicLabels {
		return nil, errors.Errorf("%s: bad magic %d, want %d", path, header.Magic, idxMagicLabels)
	}

	buf := make([]byte, header.Count)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrapf(err, "read %s labels", path)
	}
	labels := make([]int, header.Count)
	for i, b := range buf {
		labels[i] = int(b)
	}

	return labels, nil
}

// ===========================================================================
// SYNTHETIC DATA
// ===========================================================================

// NewSyntheticDataset generates n examples of Gaussian blobs, one blob
// per class, so the demo trains end to end with no files on disk. Each
// class c gets a mean vector whose direction depends on c; features are
// that mean plus unit noise. Deterministic per seed.
func NewSyntheticDataset(n, width, classes int, seed int64) (*Dataset, error) {
	if n <= 0 || width <= 0 || classes <= 0 {
		return nil, errors.Wrapf(ErrBadConfig, "synthetic: n=%d width=%d classes=%d", n, width, classes)
	}

	rng := rand.New(rand.NewSource(seed))
	features := make([][]float64, n)
	labels := make([]int, n)

	for i := range features {
		label := rng.Intn(classes)
		row := make([]float64, width)
		for j := range row {
			// Class mean: +2 on coordinates congruent to the label, 0 elsewhere.
			mean := 0.0
			if j%classes == label {
				mean = 2.0
			}
			row[j] = mean + rng.NormFloat64()
		}
		features[i] = row
		labels[i] = label
	}

	return NewDataset(features, labels, classes)
}
