package completion

import (
	"context"
	"fmt"
)

// Request describes one orchestrated completion call.
type Request struct {
	// Prompt is a single prompt (a string or a key/value object) or an
	// array of such prompts.
	Prompt any

	// Model is the engine name the endpoint URL is parameterized by.
	Model string

	// Args holds the decoding parameters. The orchestrator never mutates
	// them; each batch works on its own clone.
	Args DecodingArgs

	// ExtraKwargs are merged into every request payload. On a key
	// collision with a typed field the kwarg wins.
	ExtraKwargs map[string]any

	// BatchSize is the number of prompts sent per network request.
	// Must be positive.
	BatchSize int

	// MaxInstances truncates the prompt sequence, dropping trailing
	// prompts beyond the limit; 0 or negative means no limit.
	MaxInstances int

	// ReturnText reduces every choice to its generated text, discarding
	// the rest of the record.
	ReturnText bool

	// Policy bounds the per-batch retry loop.
	Policy RetryPolicy
}

// Result holds the Args.N completions generated for one prompt, in the
// order the service returned them. Exactly one field is populated: Texts
// when the request asked for text only, Choices otherwise.
type Result struct {
	Choices []Choice
	Texts   []string
}

// Complete drives the whole orchestration: normalize the prompt input,
// batch it, resolve every batch strictly in order through the retry loop,
// and reshape the concatenated choices into one Result per prompt. A
// single-prompt input yields a one-element slice. Only input validation,
// malformed responses, and an exhausted retry policy produce errors;
// transient service failures are absorbed by the retry loop.
func (c *Client) Complete(ctx context.Context, req Request) ([]Result, error) {
	if req.Args.N < 1 {
		return nil, fmt.Errorf("completion: n must be at least 1, got %d", req.Args.N)
	}

	prompts, single, err := normalizePrompts(req.Prompt)
	if err != nil {
		return nil, err
	}

	batches, err := batchPrompts(prompts, req.BatchSize, req.MaxInstances)
	if err != nil {
		return nil, err
	}

	var choices []Choice
	for i, batch := range batches {
		got, err := c.completeBatch(ctx, i, batch, req.Model, req.Args.Clone(), req.ExtraKwargs, req.Policy)
		if err != nil {
			return nil, err
		}

		choices = append(choices, got...)
	}

	results := reshape(choices, req.Args.N, req.ReturnText)

	// Collapse a single-prompt input back to its sole result.
	if single && len(results) > 1 {
		results = results[:1]
	}

	return results, nil
}

// reshape regroups the flat, batch-ordered choice sequence into one
// Result per prompt. The transport returns choices in prompt-major order,
// so the n completions for consecutive prompts occupy consecutive chunks
// of n.
func reshape(choices []Choice, n int, returnText bool) []Result {
	results := make([]Result, 0, (len(choices)+n-1)/n)

	for start := 0; start < len(choices); start += n {
		chunk := choices[start:min(start+n, len(choices))]

		var r Result
		if returnText {
			r.Texts = make([]string, len(chunk))
			for i, ch := range chunk {
				r.Texts[i] = ch.Text
			}
		} else {
			r.Choices = append([]Choice(nil), chunk...)
		}

		results = append(results, r)
	}

	return results
}
