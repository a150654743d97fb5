package completion

import "fmt"

// normalizePrompts classifies prompt as a single prompt or a collection
// and returns a uniform ordered sequence. A bare string or a key/value
// object denotes one prompt (the object form carries structured prompts);
// an array denotes a collection of prompts. The single flag is remembered
// so the final result can collapse back to one element.
func normalizePrompts(prompt any) (prompts []any, single bool, err error) {
	switch v := prompt.(type) {
	case string:
		return []any{v}, true, nil
	case map[string]any:
		return []any{v}, true, nil
	case []any:
		return v, false, nil
	default:
		return nil, false, fmt.Errorf("%w, got %T", ErrInvalidPromptShape, prompt)
	}
}

// batchPrompts truncates prompts to at most maxInstances elements and
// partitions the remainder into contiguous groups of batchSize, order
// preserved. The last group holds whatever is left. maxInstances <= 0
// means no truncation; an empty sequence yields zero batches.
func batchPrompts(prompts []any, batchSize, maxInstances int) ([][]any, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidBatchSize, batchSize)
	}

	if maxInstances > 0 && len(prompts) > maxInstances {
		prompts = prompts[:maxInstances]
	}

	batches := make([][]any, 0, (len(prompts)+batchSize-1)/batchSize)
	for start := 0; start < len(prompts); start += batchSize {
		end := min(start+batchSize, len(prompts))
		batches = append(batches, prompts[start:end])
	}

	return batches, nil
}
