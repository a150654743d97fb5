package completion_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starknet-edu/kakashi/pkg/completion"
)

func TestComplete_SingleStringTextOnly(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeChoices(t, w, map[string]any{"text": "12"})
	})

	req := completion.Request{
		Prompt:       "Find the square root of 144.",
		Model:        "text-davinci-003",
		Args:         completion.DefaultDecodingArgs(),
		BatchSize:    1,
		MaxInstances: 1,
		ReturnText:   true,
	}

	results, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"12"}, results[0].Texts)
	assert.Nil(t, results[0].Choices)
}

func TestComplete_MultiCompletionGrouping(t *testing.T) {
	// Two prompts with n=3: the service returns the choices in
	// prompt-major order, six in total for one batch.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)
		assert.Equal(t, float64(3), req["n"])

		writeChoices(t, w,
			map[string]any{"text": "p0c0"}, map[string]any{"text": "p0c1"}, map[string]any{"text": "p0c2"},
			map[string]any{"text": "p1c0"}, map[string]any{"text": "p1c1"}, map[string]any{"text": "p1c2"},
		)
	})

	args := completion.DefaultDecodingArgs()
	args.N = 3

	req := completion.Request{
		Prompt:    []any{"first", "second"},
		Model:     "text-davinci-003",
		Args:      args,
		BatchSize: 2,
	}

	results, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Len(t, results[0].Choices, 3)
	assert.Equal(t, "p0c0", results[0].Choices[0].Text)
	assert.Equal(t, "p0c2", results[0].Choices[2].Text)

	require.Len(t, results[1].Choices, 3)
	assert.Equal(t, "p1c0", results[1].Choices[0].Text)
	assert.Equal(t, "p1c2", results[1].Choices[2].Text)
}

func TestComplete_BatchOrderPreserved(t *testing.T) {
	texts := []string{"one", "two", "three", "four", "five"}
	call := 0

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		batch := readBody(t, r)["prompt"].([]any)

		choices := make([]map[string]any, len(batch))
		for i := range batch {
			choices[i] = map[string]any{"text": texts[call]}
			call++
		}

		writeChoices(t, w, choices...)
	})

	req := completion.Request{
		Prompt:     []any{"a", "b", "c", "d", "e"},
		Model:      "text-davinci-003",
		Args:       completion.DefaultDecodingArgs(),
		BatchSize:  2,
		ReturnText: true,
	}

	results, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i, want := range texts {
		assert.Equal(t, []string{want}, results[i].Texts)
	}
}

func TestComplete_InvalidInputs(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		writeChoices(t, w, map[string]any{"text": "never"})
	})

	t.Run("malformed prompt", func(t *testing.T) {
		req := singleRequest("p")
		req.Prompt = 42

		_, err := client.Complete(context.Background(), req)
		require.ErrorIs(t, err, completion.ErrInvalidPromptShape)
	})

	t.Run("zero batch size", func(t *testing.T) {
		req := singleRequest("p")
		req.BatchSize = 0

		_, err := client.Complete(context.Background(), req)
		require.ErrorIs(t, err, completion.ErrInvalidBatchSize)
	})

	t.Run("zero n", func(t *testing.T) {
		req := singleRequest("p")
		req.Args.N = 0

		_, err := client.Complete(context.Background(), req)
		require.Error(t, err)
	})

	assert.Zero(t, attempts, "validation failures must not reach the network")
}

func TestComplete_EmptyCollection(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		writeChoices(t, w)
	})

	req := singleRequest("p")
	req.Prompt = []any{}

	results, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, attempts)
}

func TestDecodingArgs_CloneIsIndependent(t *testing.T) {
	lp := 5
	orig := completion.DefaultDecodingArgs()
	orig.Stop = []string{"\n"}
	orig.Logprobs = &lp

	clone := orig.Clone()
	clone.MaxTokens = 1
	clone.Stop[0] = "mutated"
	*clone.Logprobs = 99

	assert.Equal(t, 1800, orig.MaxTokens)
	assert.Equal(t, "\n", orig.Stop[0])
	assert.Equal(t, 5, *orig.Logprobs)
}
