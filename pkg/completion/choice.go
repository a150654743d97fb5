package completion

import "encoding/json"

// Choice is one completion record returned by the service. Raw preserves
// the record exactly as returned, including metadata fields this struct
// does not model.
type Choice struct {
	Text         string          `json:"text"`
	Index        int             `json:"index"`
	Logprobs     json.RawMessage `json:"logprobs,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Raw          json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the modeled fields and keeps a copy of the full
// record in Raw.
func (c *Choice) UnmarshalJSON(data []byte) error {
	type plain Choice

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	*c = Choice(p)
	c.Raw = append(json.RawMessage(nil), data...)

	return nil
}
