// Package prompt encodes seed instruction examples into the few-shot text
// prompt sent to the completion endpoint, and decodes a model's
// continuation back into instruction records.
package prompt

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// noInput marks an instruction that needs no accompanying input text.
const noInput = "<noinput>"

// separator delimits the numbered example blocks in the encoded prompt.
const separator = "###"

var (
	whitespaceRE = regexp.MustCompile(`\s+`)

	// blockRE captures the instruction, input, and output sections of one
	// numbered example block.
	blockRE = regexp.MustCompile(`(?s)\d+\.\s*Instruction:\s*(.*?)\n\d+\.\s*Input:\n?(.*?)\n\d+\.\s*Output:\n?(.*)`)
)

// Instruction is one instruction/input/output example, either a seed fed
// into the prompt or a record decoded from a completion.
type Instruction struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
}

// LoadTemplate reads the static preamble file the encoded prompt opens
// with. Trailing newlines are trimmed; Encode adds its own separator.
func LoadTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("prompt: load template: %w", err)
	}

	return strings.TrimRight(string(data), "\n"), nil
}

// Encode renders the preamble followed by one numbered block per seed and
// an opening line for the next instruction, inviting the model to
// continue the sequence. Instruction text has runs of whitespace
// collapsed and trailing colons trimmed; an empty input becomes the
// <noinput> placeholder.
func Encode(preamble string, seeds []Instruction) string {
	var b strings.Builder

	b.WriteString(preamble)
	b.WriteString("\n")

	for idx, s := range seeds {
		inst := whitespaceRE.ReplaceAllString(s.Instruction, " ")
		inst = strings.TrimRight(strings.TrimSpace(inst), ":")

		input := s.Input
		if input == "" {
			input = noInput
		}

		b.WriteString(separator + "\n")
		fmt.Fprintf(&b, "%d. Instruction: %s\n", idx+1, inst)
		fmt.Fprintf(&b, "%d. Input:\n%s\n", idx+1, input)
		fmt.Fprintf(&b, "%d. Output:\n%s\n", idx+1, s.Output)
	}

	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "%d. Instruction:", len(seeds)+1)

	return b.String()
}

// Decode parses a model continuation back into instruction records. The
// continuation begins mid-block because the prompt already printed
// "<startIdx>. Instruction:", so that opening is restored before
// splitting on the block separators. Blocks that do not parse or carry an
// empty instruction are skipped.
func Decode(continuation string, startIdx int) []Instruction {
	text := fmt.Sprintf("%d. Instruction:%s", startIdx, continuation)

	var out []Instruction
	for _, block := range strings.Split(text, separator) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		inst, ok := parseBlock(block)
		if !ok {
			continue
		}

		out = append(out, inst)
	}

	return out
}

// parseBlock extracts one Instruction from a numbered example block.
func parseBlock(block string) (Instruction, bool) {
	m := blockRE.FindStringSubmatch(block)
	if m == nil {
		return Instruction{}, false
	}

	inst := Instruction{
		Instruction: strings.TrimSpace(m[1]),
		Input:       strings.TrimSpace(m[2]),
		Output:      strings.TrimSpace(m[3]),
	}

	if inst.Instruction == "" {
		return Instruction{}, false
	}

	if inst.Input == noInput {
		inst.Input = ""
	}

	return inst, true
}
