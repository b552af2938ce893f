package token

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Sanitize returns a copy of data restricted to the token-data key set,
// with nil/empty values and the previous chain removed. Sanitized maps are
// the sole input to Hash, so unknown keys and history can never perturb
// the ETag.
func Sanitize(data Record) Record {
	out := make(Record)
	for k, v := range data {
		if !DataKeys(k) {
			continue
		}
		if emptyValue(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// Hash computes the deterministic content hash of a record: sha-256 over
// the canonical JSON encoding of the sanitized payload. encoding/json
// sorts object keys at every level, so the hash is invariant under map
// ordering. A nil or empty record hashes as the empty object.
//
// The string form of this hash is the token's ETag.
func Hash(data Record) string {
	canonical, err := json.Marshal(Sanitize(data))
	if err != nil {
		// Records come from decoded JSON, so re-encoding cannot fail;
		// hash the empty object rather than panic on a stray value.
		canonical = []byte("{}")
	}
	sum := sha256.Sum256(canonical)
	return "E" + hex.EncodeToString(sum[:])
}

// Equal reports whether two records have identical canonical JSON
// encodings. This tolerates int/float64 skew from KV round trips.
func Equal(a, b Record) bool {
	aj, err1 := json.Marshal(a)
	bj, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return string(aj) == string(bj)
}

// emptyValue reports whether v is nil or an empty string/map/slice.
func emptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case map[string]string:
		return len(t) == 0
	case Record:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
