package main

// ===========================================================================
// WHAT'S GOING ON HERE
// ===========================================================================
//
// This file implements the training loop - the part of the repository
// that actually is the repository.
//
// THE IDIOM:
// Per batch, in strict order:
//
//	1. Forward:  logProbs = model.Forward(tape, batch.Inputs)
//	2. Loss:     L = NLLLoss(tape, logProbs, batch.Labels)
//	3. Zero:     optimizer.ZeroGrad()
//	4. Backward: tape.Backward(L) deposits dL/dParam everywhere
//	5. Step:     optimizer.Step() applies param -= lr · grad
//	6. Account:  add L to the running epoch total
//
// A fresh tape per batch keeps the op graph's lifetime exactly one step:
// built during forward, consumed by backward, garbage afterwards.
//
// Zeroing *before* backward (not after step) makes the contract explicit:
// whatever is in the accumulators when backward runs gets added to. The
// framework never resets gradients behind your back.
//
// The per-epoch mean loss is a monitoring signal only - nothing branches
// on it. Any error aborts the run immediately; there is no partial-epoch
// recovery, because a half-applied training step is worth less than none.
//
// ===========================================================================

import (
	"log"
	"math/rand"

	"github.com/pkg/errors"
)

// TrainConfig holds the hyperparameters of a training run.
type TrainConfig struct {
	Epochs    int
	BatchSize int
	Seed      int64 // shuffle seed; fixed seed = reproducible batch order
	LogEvery  int   // log a progress line every N batches; 0 disables
}

// DefaultTrainConfig returns sensible defaults for the MNIST-sized demo.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:    5,
		BatchSize: 64,
		Seed:      1,
		LogEvery:  100,
	}
}

// Validate verifies the config describes a runnable training job.
func (c TrainConfig) Validate() error {
	if c.Epochs <= 0 {
		return errors.Wrapf(ErrBadConfig, "train: epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return errors.Wrapf(ErrBadConfig, "train: batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// Train runs the full training loop: cfg.Epochs passes over ds, each a
// fresh shuffle, each batch one forward→loss→zero→backward→step cycle.
//
// Returns one mean training loss per epoch. The first error aborts the
// run and surfaces to the caller with epoch/batch context attached.
func Train(model *Sequential, opt *SGD, ds *Dataset, cfg TrainConfig) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ds == nil || ds.Len() == 0 {
		return nil, errors.Wrap(ErrBadConfig, "train: empty data source")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	epochLosses := make([]float64, 0, cfg.Epochs)

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		batches := ds.Batches(cfg.BatchSize, rng)
		running := 0.0

		for b, batch := range batches {
			loss, err := trainStep(model, opt, batch)
			if err != nil {
				return nil, errors.Wrapf(err, "epoch %d batch %d", epoch, b)
			}
			running += loss

			if cfg.LogEvery > 0 && (b+1)%cfg.LogEvery == 0 {
				log.Printf("epoch=%d batch=%d/%d loss=%.4f", epoch, b+1, len(batches), loss)
			}
		}

		mean := running / float64(len(batches))
		epochLosses = append(epochLosses, mean)
		log.Printf("epoch=%d mean_loss=%.4f", epoch, mean)
	}

	return epochLosses, nil
}

// trainStep runs one batch through the forward→loss→zero→backward→step
// sequence and returns the batch loss.
func trainStep(model *Sequential, opt *SGD, batch Batch) (float64, error) {
	tape := NewTape()

	logProbs, err := model.Forward(tape, batch.Inputs)
	if err != nil {
		return 0, errors.Wrap(err, "forward")
	}

	loss, err := NLLLoss(tape, logProbs, batch.Labels)
	if err != nil {
		return 0, errors.Wrap(err, "loss")
	}

	opt.ZeroGrad()
	if err := tape.Backward(loss); err != nil {
		return 0, errors.Wrap(err, "backward")
	}
	opt.Step()

	return loss.data[0], nil
}

// Evaluate computes mean loss and accuracy over a dataset without
// gradient tracking (nil tape): a pure monitoring pass that never
// touches parameter state.
func Evaluate(model *Sequential, ds *Dataset, batchSize int) (meanLoss, accuracy float64, err error) {
	if ds == nil || ds.Len() == 0 {
		return 0, 0, errors.Wrap(ErrBadConfig, "evaluate: empty data source")
	}
	if batchSize <= 0 {
		return 0, 0, errors.Wrapf(ErrBadConfig, "evaluate: batch size must be positive, got %d", batchSize)
	}

	// Evaluation order does not matter; a fixed-seed shuffle keeps the
	// batch partition deterministic.
	rng := rand.New(rand.NewSource(0))
	batches := ds.Batches(batchSize, rng)

	totalLoss := 0.0
	correct, seen := 0, 0

	for b, batch := range batches {
		logProbs, err := model.Forward(nil, batch.Inputs)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "evaluate batch %d: forward", b)
		}
		loss, err := NLLLoss(nil, logProbs, batch.Labels)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "evaluate batch %d: loss", b)
		}
		totalLoss += loss.data[0]

		classes := logProbs.shape[1]
		for i, label := range batch.Labels {
			row := logProbs.data[i*classes : (i+1)*classes]
			best := 0
			for j, v := range row {
				if v > row[best] {
					best = j
				}
			}
			if best == label {
				correct++
			}
			seen++
		}
	}

	return totalLoss / float64(len(batches)), float64(correct) / float64(seen), nil
}
