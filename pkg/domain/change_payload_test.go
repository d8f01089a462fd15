package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

type unmarshalableValue struct{}

func (unmarshalableValue) MarshalJSON() ([]byte, error) {
	return nil, errors.New("marshal failure")
}

func TestChangePayloadStates(t *testing.T) {
	cases := []struct {
		name    string
		payload ChangePayload
		defined bool
		empty   bool
	}{
		{"zero value", ChangePayload{}, false, true},
		{"undefined helper", UndefinedChangePayload(), false, true},
		{"nil raw", NewChangePayload(nil), false, true},
		{"wrapped json", NewChangePayload(json.RawMessage(`{"path":"wall.dat"}`)), true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.payload.Defined(); got != tc.defined {
				t.Fatalf("Defined() = %v, want %v", got, tc.defined)
			}
			if got := tc.payload.IsEmpty(); got != tc.empty {
				t.Fatalf("IsEmpty() = %v, want %v", got, tc.empty)
			}
			if tc.empty && tc.payload.Raw() != nil {
				t.Fatalf("empty payload returned raw bytes %s", tc.payload.Raw())
			}
		})
	}
}

func TestChangePayloadIsolatesItsBytes(t *testing.T) {
	raw := json.RawMessage(`{"path":"inlet.dat"}`)
	payload := NewChangePayload(raw)
	raw[2] = 'X'

	first := payload.Raw()
	first[2] = 'Y'
	if got := payload.Raw(); string(got) != `{"path":"inlet.dat"}` {
		t.Fatalf("stored payload changed: %s", got)
	}
}

func TestNewChangePayloadFromValueDecodesBack(t *testing.T) {
	payload, err := NewChangePayloadFromValue(BoundaryFile{Seq: 2, Path: "inlet.dat"})
	if err != nil {
		t.Fatalf("build payload: %v", err)
	}
	if !payload.Defined() || payload.IsEmpty() {
		t.Fatalf("expected a populated payload, got %+v", payload)
	}

	var file BoundaryFile
	if err := payload.Decode(&file); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if file.Path != "inlet.dat" || file.Seq != 2 {
		t.Fatalf("unexpected decoded file %+v", file)
	}

	var untouched BoundaryFile
	if err := UndefinedChangePayload().Decode(&untouched); err != nil {
		t.Fatalf("decode undefined payload: %v", err)
	}
	if untouched.Path != "" {
		t.Fatalf("undefined payload wrote into target: %+v", untouched)
	}

	if _, err := NewChangePayloadFromValue(unmarshalableValue{}); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestChangeSerializesPayloadsAsJSON(t *testing.T) {
	change := Change{
		Entity: EntityBoundaryFile,
		Action: ActionUpdate,
		Before: NewChangePayload(json.RawMessage(`{"path":"old.dat"}`)),
		After:  NewChangePayload(json.RawMessage(`{"path":"new.dat"}`)),
	}
	encoded, err := json.Marshal(change)
	if err != nil {
		t.Fatalf("marshal change: %v", err)
	}
	var decoded Change
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal change: %v", err)
	}
	if string(decoded.After.Raw()) != `{"path":"new.dat"}` {
		t.Fatalf("unexpected after payload %s", decoded.After.Raw())
	}

	deletion, err := json.Marshal(Change{Entity: EntityProbe, Action: ActionDelete})
	if err != nil {
		t.Fatalf("marshal deletion: %v", err)
	}
	var sparse Change
	if err := json.Unmarshal(deletion, &sparse); err != nil {
		t.Fatalf("unmarshal deletion: %v", err)
	}
	if sparse.Before.Defined() || sparse.After.Defined() {
		t.Fatalf("expected null payloads to stay undefined, got %s", deletion)
	}
}
