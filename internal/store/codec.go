package store

import (
	"encoding/json"
	"fmt"
)

// Encode turns a tagged struct into a Record using its JSON field names.
// Fields tagged omitempty and left unset are absent from the result, which
// makes pointer-field structs convenient partial updates.
func Encode(v any) (Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode record: %w", err)
	}

	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("store: encode record: %w", err)
	}
	return r, nil
}

// Decode converts a Record into T through its JSON representation.
func Decode[T any](r Record) (T, error) {
	var out T

	b, err := json.Marshal(r)
	if err != nil {
		return out, fmt.Errorf("store: decode record: %w", err)
	}

	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("store: decode record %v: %w", r["id"], err)
	}
	return out, nil
}
