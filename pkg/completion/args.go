package completion

// DecodingArgs holds the generation parameters sent with every completion
// request. The zero value requests zero tokens and zero completions, so
// callers should start from DefaultDecodingArgs and adjust.
type DecodingArgs struct {
	MaxTokens        int      // Maximum tokens to generate per completion.
	Temperature      float64  // Sampling temperature.
	TopP             float64  // Nucleus sampling probability mass.
	N                int      // Completions to generate per prompt. Must be at least 1.
	Stream           bool     // Request a streamed response.
	Stop             []string // Sequences that stop generation.
	PresencePenalty  float64
	FrequencyPenalty float64
	Suffix           string // Text appended after the completion; empty means none.
	Logprobs         *int   // Log probabilities to include per token; nil means none.
	Echo             bool   // Echo the prompt back in the completion.
}

// DefaultDecodingArgs returns the standard decoding parameters for
// instruction generation.
func DefaultDecodingArgs() DecodingArgs {
	return DecodingArgs{
		MaxTokens:   1800,
		Temperature: 0.2,
		TopP:        1.0,
		N:           1,
	}
}

// Clone returns a copy that shares nothing with the receiver, so a batch
// adapting its working copy never touches the caller's arguments.
func (a DecodingArgs) Clone() DecodingArgs {
	c := a
	if a.Stop != nil {
		c.Stop = append([]string(nil), a.Stop...)
	}
	if a.Logprobs != nil {
		v := *a.Logprobs
		c.Logprobs = &v
	}
	return c
}

// payload returns the request parameters derived from the typed fields.
// Optional fields are omitted entirely when unset.
func (a DecodingArgs) payload() map[string]any {
	p := map[string]any{
		"max_tokens":        a.MaxTokens,
		"temperature":       a.Temperature,
		"top_p":             a.TopP,
		"n":                 a.N,
		"stream":            a.Stream,
		"presence_penalty":  a.PresencePenalty,
		"frequency_penalty": a.FrequencyPenalty,
		"echo":              a.Echo,
	}

	if len(a.Stop) > 0 {
		p["stop"] = a.Stop
	}
	if a.Suffix != "" {
		p["suffix"] = a.Suffix
	}
	if a.Logprobs != nil {
		p["logprobs"] = *a.Logprobs
	}

	return p
}
