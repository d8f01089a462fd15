package domain

import (
	"bytes"
	"encoding/json"
)

// ChangePayload holds one side of a change entry as raw JSON. The zero value
// is undefined, which is how creates report their before state and deletes
// their after state.
type ChangePayload struct {
	raw json.RawMessage
}

// NewChangePayload wraps raw JSON in a payload. The bytes are cloned so later
// mutation of the argument cannot reach the stored state. A nil slice yields
// the undefined payload.
func NewChangePayload(raw json.RawMessage) ChangePayload {
	return ChangePayload{raw: bytes.Clone(raw)}
}

// NewChangePayloadFromValue marshals value and wraps the result.
func NewChangePayloadFromValue[T any](value T) (ChangePayload, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return ChangePayload{}, err
	}
	return ChangePayload{raw: raw}, nil
}

// UndefinedChangePayload returns the zero payload.
func UndefinedChangePayload() ChangePayload {
	return ChangePayload{}
}

// Defined reports whether the payload carries JSON.
func (p ChangePayload) Defined() bool {
	return p.raw != nil
}

// IsEmpty reports whether the payload carries no bytes.
func (p ChangePayload) IsEmpty() bool {
	return len(p.raw) == 0
}

// Raw returns a clone of the wrapped JSON, nil when the payload is undefined
// or empty.
func (p ChangePayload) Raw() json.RawMessage {
	if len(p.raw) == 0 {
		return nil
	}
	return bytes.Clone(p.raw)
}

// Decode unmarshals the wrapped JSON into out. Undefined and empty payloads
// leave out untouched.
func (p ChangePayload) Decode(out any) error {
	if len(p.raw) == 0 {
		return nil
	}
	return json.Unmarshal(p.raw, out)
}

// MarshalJSON emits the wrapped bytes, or null when the payload is undefined
// or empty.
func (p ChangePayload) MarshalJSON() ([]byte, error) {
	if len(p.raw) == 0 {
		return []byte("null"), nil
	}
	return bytes.Clone(p.raw), nil
}

// UnmarshalJSON stores a clone of data. A JSON null resets the payload to
// undefined.
func (p *ChangePayload) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*p = ChangePayload{}
		return nil
	}
	p.raw = bytes.Clone(data)
	return nil
}
