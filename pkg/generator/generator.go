// Package generator drives instruction generation end to end: it samples
// seed tasks, encodes them into few-shot prompts, requests completions
// through the batched orchestrator, and decodes the continuations back
// into new instruction records.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/starknet-edu/kakashi/pkg/completion"
	"github.com/starknet-edu/kakashi/pkg/jsonio"
	"github.com/starknet-edu/kakashi/pkg/prompt"
)

// Completer issues one orchestrated completion call. *completion.Client
// satisfies it; tests substitute a fake.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) ([]completion.Result, error)
}

// Opts shapes one generation run.
type Opts struct {
	// Requests is the number of completion calls to issue (default 1).
	Requests int

	// SeedsPerPrompt is the number of seed examples encoded into each
	// prompt (default 3, capped at the number of available seeds).
	SeedsPerPrompt int

	// BatchSize is the number of prompts sent per network request
	// (default 1).
	BatchSize int

	// MaxInstances caps the prompts considered per call; 0 = no limit.
	MaxInstances int

	// Args holds the decoding parameters for every call.
	Args completion.DecodingArgs

	// ExtraKwargs are forwarded to every request payload.
	ExtraKwargs map[string]any

	// Policy bounds each batch's retry loop.
	Policy completion.RetryPolicy
}

// Generator produces new instruction examples from a pool of seed tasks.
type Generator struct {
	client   Completer
	logger   *zap.Logger
	model    string
	preamble string
	seeds    []prompt.Instruction

	// permFunc is used for testing; defaults to rand.Perm.
	permFunc func(n int) []int
}

// New creates a Generator. logger may be nil.
func New(client Completer, model, preamble string, seeds []prompt.Instruction, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:   client,
		logger:   logger,
		model:    model,
		preamble: preamble,
		seeds:    seeds,
		permFunc: rand.Perm,
	}
}

// SetPermFunc overrides the seed-sampling permutation source (for testing).
func (g *Generator) SetPermFunc(fn func(n int) []int) { g.permFunc = fn }

// LoadSeeds reads seed instructions from a JSON array file or, when the
// path ends in .jsonl, from a JSON Lines file with one record per line.
func LoadSeeds(path string) ([]prompt.Instruction, error) {
	if strings.HasSuffix(path, ".jsonl") {
		var seeds []prompt.Instruction

		err := jsonio.LoadLines(path, func(raw json.RawMessage) error {
			var s prompt.Instruction
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}

			seeds = append(seeds, s)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("generator: load seeds: %w", err)
		}

		return seeds, nil
	}

	var seeds []prompt.Instruction
	if err := jsonio.Load(path, &seeds); err != nil {
		return nil, fmt.Errorf("generator: load seeds: %w", err)
	}

	return seeds, nil
}

// sample picks k distinct seeds in random order.
func (g *Generator) sample(k int) []prompt.Instruction {
	perm := g.permFunc(len(g.seeds))

	picked := make([]prompt.Instruction, 0, k)
	for _, idx := range perm[:k] {
		picked = append(picked, g.seeds[idx])
	}

	return picked
}

// Run issues opts.Requests completion calls and returns the decoded
// instructions, with empty and duplicate instructions (including
// duplicates of the seeds themselves) filtered out.
func (g *Generator) Run(ctx context.Context, opts Opts) ([]prompt.Instruction, error) {
	if len(g.seeds) == 0 {
		return nil, fmt.Errorf("generator: no seed tasks")
	}

	requests := opts.Requests
	if requests <= 0 {
		requests = 1
	}

	seedsPerPrompt := opts.SeedsPerPrompt
	if seedsPerPrompt <= 0 {
		seedsPerPrompt = 3
	}
	if seedsPerPrompt > len(g.seeds) {
		seedsPerPrompt = len(g.seeds)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	seen := make(map[string]struct{}, len(g.seeds))
	for _, s := range g.seeds {
		seen[normalizeKey(s.Instruction)] = struct{}{}
	}

	var out []prompt.Instruction
	for i := 0; i < requests; i++ {
		prompts := make([]any, batchSize)
		for j := range prompts {
			prompts[j] = prompt.Encode(g.preamble, g.sample(seedsPerPrompt))
		}

		results, err := g.client.Complete(ctx, completion.Request{
			Prompt:       prompts,
			Model:        g.model,
			Args:         opts.Args,
			ExtraKwargs:  opts.ExtraKwargs,
			BatchSize:    batchSize,
			MaxInstances: opts.MaxInstances,
			ReturnText:   true,
			Policy:       opts.Policy,
		})
		if err != nil {
			return nil, fmt.Errorf("generator: request %d: %w", i+1, err)
		}

		kept := 0
		for _, res := range results {
			for _, text := range res.Texts {
				for _, inst := range prompt.Decode(text, seedsPerPrompt+1) {
					key := normalizeKey(inst.Instruction)
					if _, dup := seen[key]; dup {
						continue
					}

					seen[key] = struct{}{}
					out = append(out, inst)
					kept++
				}
			}
		}

		g.logger.Info("completion request finished",
			zap.Int("request", i+1),
			zap.Int("kept", kept),
			zap.Int("total", len(out)),
		)
	}

	return out, nil
}

// normalizeKey canonicalizes an instruction for duplicate detection.
func normalizeKey(instruction string) string {
	return strings.ToLower(strings.Join(strings.Fields(instruction), " "))
}
