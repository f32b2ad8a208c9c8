package audit

import (
	"bytes"
	"encoding/json"
)

// canonicalJSON produces a deterministic byte representation of v: object
// keys are sorted (encoding/json already sorts map[string]any keys; we
// round-trip through a generic value so this holds at every nesting level,
// not just the top one), HTML escaping is disabled, and there is no
// trailing newline. Audit event hashing commits to sorted-key JSON with
// Go's default numeric formatting.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
