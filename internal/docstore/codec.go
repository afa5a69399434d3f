package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Encode converts a tagged struct into document data. The "id" field is
// dropped since it is carried by the document key.
func Encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	data, err := DecodeJSON(raw)
	if err != nil {
		return nil, err
	}
	delete(data, "id")
	return data, nil
}

// DecodeJSON parses a JSON object into document data, keeping integers
// integral.
func DecodeJSON(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("decode document: not an object")
	}
	return normalize(data).(map[string]any), nil
}

// Decode fills v from doc, including its id.
func Decode(doc Document, v any) error {
	data := make(map[string]any, len(doc.Data)+1)
	maps.Copy(data, doc.Data)
	data["id"] = doc.ID
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	return nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}
