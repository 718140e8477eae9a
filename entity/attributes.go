package entity

import (
	"encoding/json"

	"github.com/The-Politico/crosswalk/errors"
)

// Attributes is a flat mapping of string keys to scalar or array values.
// Values arrive through JSON decoding, so scalars are string, float64, or
// bool and arrays are []interface{}. Nested mappings are rejected by
// ValidateShallow before any write.
type Attributes map[string]interface{}

// reservedKeys may never appear as attribute keys: they collide with the
// envelope fields of API responses and the entity record itself.
var reservedKeys = map[string]struct{}{
	"alias_for":     {},
	"aliased":       {},
	"attributes":    {},
	"created":       {},
	"domain":        {},
	"entity":        {},
	"match_score":   {},
	"superseded_by": {},
	"uuid":          {},
}

// IsReservedKey reports whether key collides with the reserved set.
func IsReservedKey(key string) bool {
	_, reserved := reservedKeys[key]
	return reserved
}

// ValidateShallow fails with ErrNestedAttributes if any value is itself a
// mapping.
func (a Attributes) ValidateShallow() error {
	for key, value := range a {
		if _, ok := value.(map[string]interface{}); ok {
			return errors.Wrapf(errors.ErrNestedAttributes, "key %q", key)
		}
		if _, ok := value.(Attributes); ok {
			return errors.Wrapf(errors.ErrNestedAttributes, "key %q", key)
		}
	}
	return nil
}

// ValidateReservedKeys fails with ErrReservedKey if any key is in the
// reserved set.
func (a Attributes) ValidateReservedKeys() error {
	for key := range a {
		if _, reserved := reservedKeys[key]; reserved {
			return errors.Wrapf(errors.ErrReservedKey, "key %q", key)
		}
	}
	return nil
}

// Validate runs both the shallow-mapping and reserved-key checks.
func (a Attributes) Validate() error {
	if err := a.ValidateShallow(); err != nil {
		return err
	}
	return a.ValidateReservedKeys()
}

// Contains reports whether every key/value pair in filter is present in a.
// Scalar filter values match by equality; when the stored value is an array,
// a scalar filter value matches by inclusion and an array filter value
// matches when all its elements are included. Logical AND across keys.
func (a Attributes) Contains(filter Attributes) bool {
	for key, want := range filter {
		have, ok := a[key]
		if !ok {
			return false
		}
		if !valueContains(have, want) {
			return false
		}
	}
	return true
}

func valueContains(have, want interface{}) bool {
	haveArr, haveIsArr := asArray(have)
	wantArr, wantIsArr := asArray(want)

	switch {
	case haveIsArr && wantIsArr:
		for _, w := range wantArr {
			if !arrayIncludes(haveArr, w) {
				return false
			}
		}
		return true
	case haveIsArr:
		return arrayIncludes(haveArr, want)
	case wantIsArr:
		return false
	default:
		return scalarEqual(have, want)
	}
}

func asArray(v interface{}) ([]interface{}, bool) {
	switch arr := v.(type) {
	case []interface{}:
		return arr, true
	case []string:
		out := make([]interface{}, len(arr))
		for i, s := range arr {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func arrayIncludes(arr []interface{}, v interface{}) bool {
	for _, item := range arr {
		if scalarEqual(item, v) {
			return true
		}
	}
	return false
}

// scalarEqual compares JSON scalars, normalizing numeric types so that a
// filter built in Go (int) matches a stored value decoded from JSON
// (float64).
func scalarEqual(a, b interface{}) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Equal reports whether a and b carry byte-identical attribute mappings,
// compared through their canonical serialization.
func (a Attributes) Equal(b Attributes) bool {
	if len(a) != len(b) {
		return false
	}
	ca, errA := a.Canonical()
	cb, errB := b.Canonical()
	if errA != nil || errB != nil {
		return false
	}
	return ca == cb
}

// Merge returns a copy of a with partial merged in, last-write-wins per key.
// Keys are never removed, only overwritten or added.
func (a Attributes) Merge(partial Attributes) Attributes {
	merged := make(Attributes, len(a)+len(partial))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}
	return merged
}

// Clone returns a shallow copy of the mapping.
func (a Attributes) Clone() Attributes {
	cloned := make(Attributes, len(a))
	for k, v := range a {
		cloned[k] = v
	}
	return cloned
}

// StringValue returns the value of key when it is a string. Non-string and
// missing values report ok=false; fuzzy extraction only scores strings.
func (a Attributes) StringValue(key string) (string, bool) {
	s, ok := a[key].(string)
	return s, ok
}

// Canonical returns the deterministic JSON serialization of the mapping.
// encoding/json sorts map keys, so equal mappings always serialize to the
// same bytes; the store's uniqueness index is built on this form.
func (a Attributes) Canonical() (string, error) {
	if a == nil {
		a = Attributes{}
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal attributes")
	}
	return string(raw), nil
}

// DecodeAttributes parses a stored canonical JSON document back into a
// mapping.
func DecodeAttributes(raw string) (Attributes, error) {
	if raw == "" || raw == "null" {
		return Attributes{}, nil
	}
	var a Attributes
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal attributes")
	}
	return a, nil
}

// PopUUID removes and returns a caller-supplied "uuid" key from a create
// payload. Create paths honor explicit UUIDs but never store them as
// attributes.
func (a Attributes) PopUUID() string {
	raw, ok := a["uuid"]
	if !ok {
		return ""
	}
	delete(a, "uuid")
	if s, ok := raw.(string); ok {
		return s
	}
	return ""
}
