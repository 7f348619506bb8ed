// Package value implements the dynamic JSON tree shared by every provider
// assembler: a tagged variant that keeps integers and doubles distinct
// (JSON-Schema "integer" vs "number") and round-trips losslessly through
// encoding/json.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind identifies which case of the tagged variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindArray
	KindObject
)

// Value is a recursive tagged JSON variant. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	d    float64
	s    string
	arr  []Value
	obj  map[string]Value
	// keys preserves object insertion order for stable re-encoding; obj is
	// the lookup table.
	keys []string
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool constructs a bool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int constructs an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Double constructs a floating-point value.
func Double(d float64) Value { return Value{kind: KindDouble, d: d} }

// String constructs a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array constructs an array value.
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: items}
}

// Object constructs an empty object value.
func Object() Value {
	return Value{kind: KindObject, obj: map[string]Value{}}
}

// Kind returns the tagged variant case.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Set returns a copy of the object with key set to val. If v is not an
// object (including the zero Value, which is null), it is treated as an
// empty object.
func (v Value) Set(key string, val Value) Value {
	if v.kind != KindObject {
		v = Object()
	}
	nv := Value{kind: KindObject, obj: make(map[string]Value, len(v.obj)+1), keys: append([]string{}, v.keys...)}
	for k, ov := range v.obj {
		nv.obj[k] = ov
	}
	if _, exists := nv.obj[key]; !exists {
		nv.keys = append(nv.keys, key)
	}
	nv.obj[key] = val
	return nv
}

// Get returns the field for key and whether it was present. Returns
// (Null(), false) for non-objects.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Null(), false
	}
	val, ok := v.obj[key]
	return val, ok
}

// Delete returns a copy of the object with key removed.
func (v Value) Delete(key string) Value {
	if v.kind != KindObject {
		return v
	}
	nv := Value{kind: KindObject, obj: make(map[string]Value, len(v.obj))}
	for _, k := range v.keys {
		if k == key {
			continue
		}
		nv.keys = append(nv.keys, k)
		nv.obj[k] = v.obj[k]
	}
	return nv
}

// Keys returns object keys in insertion order. Empty for non-objects.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Append returns a copy of the array with val appended.
func (v Value) Append(val Value) Value {
	if v.kind != KindArray {
		v = Value{kind: KindArray}
	}
	nv := Value{kind: KindArray, arr: append(append([]Value{}, v.arr...), val)}
	return nv
}

// Items returns a copy of the array elements, or an empty slice for
// non-arrays.
func (v Value) Items() []Value {
	out := make([]Value, len(v.arr))
	copy(out, v.arr)
	return out
}

// AsBool returns the raw bool; callers should check Kind first.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the raw int64; callers should check Kind first.
func (v Value) AsInt() int64 { return v.i }

// AsDouble returns the raw float64; callers should check Kind first.
func (v Value) AsDouble() float64 { return v.d }

// AsString returns the raw string; callers should check Kind first.
func (v Value) AsString() string { return v.s }

// Equal reports structural equality.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindDouble:
		return a.d == b.d
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for k, av := range a.obj {
			bv, ok := b.obj[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// FromAny converts any host JSON representation (the result of
// json.Unmarshal into interface{}, or hand-built map[string]interface{} /
// []interface{} / primitives) into a Value. Integers that fit exactly in an
// int64 are kept as KindInt; anything with a fractional part, or outside
// that range, becomes KindDouble.
func FromAny(in interface{}) Value {
	switch t := in.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float32:
		return numberFromFloat(float64(t))
	case float64:
		return numberFromFloat(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i)
		}
		d, _ := t.Float64()
		return numberFromFloat(d)
	case []interface{}:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromAny(e)
		}
		return Value{kind: KindArray, arr: items}
	case []Value:
		return Value{kind: KindArray, arr: append([]Value{}, t...)}
	case map[string]interface{}:
		nv := Object()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			nv = nv.Set(k, FromAny(t[k]))
		}
		return nv
	case map[string]Value:
		nv := Object()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			nv = nv.Set(k, t[k])
		}
		return nv
	case Value:
		return t
	default:
		// Unknown host type: round-trip through encoding/json.
		b, err := json.Marshal(in)
		if err != nil {
			return Null()
		}
		var generic interface{}
		if err := json.Unmarshal(b, &generic); err != nil {
			return Null()
		}
		return FromAny(generic)
	}
}

func numberFromFloat(f float64) Value {
	if f == float64(int64(f)) {
		return Int(int64(f))
	}
	return Double(f)
}

// ToAny converts a Value back to the host-native representation
// (map[string]interface{}, []interface{}, and primitives) suitable for
// json.Marshal or further interop.
func (v Value) ToAny() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindDouble:
		return v.d
	case KindString:
		return v.s
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.ToAny()
		}
		return out
	}
	return nil
}

// ToMap projects an object Value into a map[string]interface{}, stripping
// the reserved internal _jsonBuf key used by streaming tool-use accumulators
// to carry the partial-JSON byte buffer. Non-objects yield an empty map.
func (v Value) ToMap() map[string]interface{} {
	out := map[string]interface{}{}
	if v.kind != KindObject {
		return out
	}
	for k, e := range v.obj {
		if k == JSONBufKey {
			continue
		}
		out[k] = e.ToAny()
	}
	return out
}

// JSONBufKey is the reserved object key carrying an in-flight tool-use
// input's partial-JSON byte buffer (see pkg/jsonpartial). Consumers project
// parameters with ToMap, which strips it automatically.
const JSONBufKey = "_jsonBuf"

// MarshalJSON implements json.Marshaler, encoding to the canonical shortest
// form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		if v.b {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindDouble:
		return json.Marshal(v.d)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		buf := []byte{'['}
		for i, e := range v.arr {
			if i > 0 {
				buf = append(buf, ',')
			}
			eb, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, eb...)
		}
		return append(buf, ']'), nil
	case KindObject:
		buf := []byte{'{'}
		for i, k := range v.keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			buf = append(buf, kb...)
			buf = append(buf, ':')
			eb, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, eb...)
		}
		return append(buf, '}'), nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler using json.Number to preserve
// the int/double distinction.
func (v *Value) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return err
	}
	*v = FromAny(generic)
	return nil
}

// ---- coercion (§4.1: toInt/toDouble/toBool/toString, strict or lossy) ----

// ToInt coerces v to an int64. In strict mode only KindInt succeeds outright;
// in lossy mode KindDouble coerces when exactly representable and KindString
// coerces when parseable. Returns ok=false ("no value") rather than erroring.
func (v Value) ToInt(strict bool) (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindDouble:
		if !strict && v.d == float64(int64(v.d)) {
			return int64(v.d), true
		}
	case KindString:
		if !strict {
			if i, err := strconv.ParseInt(v.s, 10, 64); err == nil {
				return i, true
			}
		}
	}
	return 0, false
}

// ToDouble coerces v to a float64.
func (v Value) ToDouble(strict bool) (float64, bool) {
	switch v.kind {
	case KindDouble:
		return v.d, true
	case KindInt:
		return float64(v.i), true
	case KindString:
		if !strict {
			if d, err := strconv.ParseFloat(v.s, 64); err == nil {
				return d, true
			}
		}
	}
	return 0, false
}

// ToBool coerces v to a bool.
func (v Value) ToBool(strict bool) (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindString:
		if !strict {
			switch v.s {
			case "true":
				return true, true
			case "false":
				return false, true
			}
		}
	}
	return false, false
}

// ToStringCoerced coerces v to its string representation.
func (v Value) ToStringCoerced(strict bool) (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindInt:
		if !strict {
			return strconv.FormatInt(v.i, 10), true
		}
	case KindDouble:
		if !strict {
			return strconv.FormatFloat(v.d, 'g', -1, 64), true
		}
	case KindBool:
		if !strict {
			return strconv.FormatBool(v.b), true
		}
	}
	return "", false
}

func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<value kind=%d>", v.kind)
	}
	return string(b)
}
