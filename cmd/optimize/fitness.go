package main

import (
	"context"
	"math"
	"sync"

	"github.com/pthm-cable/jelly/config"
	"github.com/pthm-cable/jelly/sim"
)

// failedFitness is returned for parameter sets that cannot run.
const failedFitness = 1e9

// FitnessEvaluator runs headless evolutions and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	generations int
	seeds       []uint64
	baseConfig  *config.Config

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestRecord  float64 // best single creature seen in the best evaluation
	lastRecord  float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, generations int, seeds []uint64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		generations: generations,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// LastRecord returns the best creature distance from the most recent evaluation.
func (fe *FitnessEvaluator) LastRecord() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastRecord
}

// BestRecord returns the best creature distance from the best evaluation.
func (fe *FitnessEvaluator) BestRecord() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestRecord
}

// runResult holds the results from a single evolution run.
type runResult struct {
	median float64 // median fitness of the last evaluated generation
	record float64 // best fitness of any generation
	err    error
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the negated median distance after the configured number of
// generations, averaged over seeds.
func (fe *FitnessEvaluator) Evaluate(ctx context.Context, x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	if err := cfg.Validate(); err != nil {
		return failedFitness
	}

	// Run all seeds in parallel
	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s uint64) {
			defer wg.Done()
			results[idx] = fe.runEvolution(ctx, cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var total, record float64
	for _, r := range results {
		if r.err != nil {
			return failedFitness
		}
		total += r.median
		record = max(record, r.record)
	}
	fitness := -total / float64(len(results))

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
		fe.bestRecord = record
	}
	fe.lastRecord = record
	fe.mu.Unlock()

	return fitness
}

// runEvolution evolves one population from seed and reports its final median.
func (fe *FitnessEvaluator) runEvolution(ctx context.Context, cfg *config.Config, seed uint64) runResult {
	m, err := sim.NewManager(ctx, cfg, seed)
	if err != nil {
		return runResult{err: err}
	}

	var res runResult
	for g := 0; g < fe.generations; g++ {
		s, err := m.DoGeneration(ctx)
		if err != nil {
			return runResult{err: err}
		}
		res.median = s.Median()
		res.record = max(res.record, s.Best())
	}
	return res
}

// copyConfig returns an independent copy of the base config. Config holds
// only value fields, so a struct copy suffices.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
