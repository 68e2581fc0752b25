package configmanager

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// Tuple is a fixed sequence of values that survives a save/load round trip
// as a tuple rather than collapsing into a plain array.
type Tuple []interface{}

// Set is an unordered collection of values. Element order is preserved on
// disk but carries no meaning.
type Set []interface{}

var (
	// ErrCorruptConfig reports a persisted document that is not a valid
	// JSON object.
	ErrCorruptConfig = errors.New("corrupt config")

	// ErrUnsupportedKind reports a field value that has no JSON encoding.
	ErrUnsupportedKind = errors.New("unsupported value kind")
)

// Values without a native JSON representation are framed as a tagged object
// holding a reserved "__kind" key, e.g. {"__kind":"bytes","data":"aGk="}.
const (
	kindKey     = "__kind"
	kindBytes   = "bytes"
	kindComplex = "complex"
	kindTuple   = "tuple"
	kindSet     = "set"
)

// encodeDocument serializes the comment and the public fields into an
// indented JSON object. The comment is framed as the reserved "_comment"
// key and written first; fields follow in sorted name order.
func encodeDocument(comment string, fields map[string]interface{}) ([]byte, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString("{")
	first := true
	writeEntry := func(name string, raw []byte) {
		if !first {
			buf.WriteString(",")
		}
		first = false
		buf.WriteString("\n  ")
		key, _ := json.Marshal(name)
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(raw)
	}

	if comment != "" {
		raw, err := json.Marshal(comment)
		if err != nil {
			return nil, fmt.Errorf("comment: %w", err)
		}
		writeEntry(commentField, raw)
	}
	for _, name := range names {
		encoded, err := encodeValue(fields[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		raw, err := json.MarshalIndent(encoded, "  ", "  ")
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		writeEntry(name, raw)
	}
	buf.WriteString("\n}\n")
	return buf.Bytes(), nil
}

// encodeValue converts a field value into a JSON-marshalable form, applying
// the tagged-object framing to kinds JSON cannot express natively.
func encodeValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return map[string]interface{}{
			kindKey: kindBytes,
			"data":  base64.StdEncoding.EncodeToString(val),
		}, nil
	case complex64:
		return encodeComplex(complex128(val)), nil
	case complex128:
		return encodeComplex(val), nil
	case Tuple:
		items, err := encodeItems(val)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{kindKey: kindTuple, "items": items}, nil
	case Set:
		items, err := encodeItems(val)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{kindKey: kindSet, "items": items}, nil
	case json.Number:
		return val, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v, nil
	case reflect.Complex64, reflect.Complex128:
		return encodeComplex(rv.Complex()), nil
	case reflect.Slice, reflect.Array:
		items := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			encoded, err := encodeValue(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			items[i] = encoded
		}
		return items, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map keys must be strings, got %s", ErrUnsupportedKind, rv.Type().Key())
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			if key == kindKey {
				return nil, fmt.Errorf("%w: map key %q is reserved", ErrUnsupportedKind, kindKey)
			}
			encoded, err := encodeValue(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[key] = encoded
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKind, v)
	}
}

func encodeItems(items []interface{}) ([]interface{}, error) {
	encoded := make([]interface{}, len(items))
	for i, item := range items {
		e, err := encodeValue(item)
		if err != nil {
			return nil, err
		}
		encoded[i] = e
	}
	return encoded, nil
}

func encodeComplex(c complex128) map[string]interface{} {
	return map[string]interface{}{
		kindKey: kindComplex,
		"real":  real(c),
		"imag":  imag(c),
	}
}

// decodeDocument parses a persisted document back into a comment and a
// field map, undoing the tagged-object framing.
func decodeDocument(data []byte) (string, map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrCorruptConfig, err)
	}
	if dec.More() {
		return "", nil, fmt.Errorf("%w: trailing data after document", ErrCorruptConfig)
	}

	var comment string
	fields := make(map[string]interface{}, len(raw))
	for name, value := range raw {
		if name == commentField {
			s, ok := value.(string)
			if !ok {
				return "", nil, fmt.Errorf("%w: %s must be a string", ErrCorruptConfig, commentField)
			}
			comment = s
			continue
		}
		decoded, err := decodeValue(value)
		if err != nil {
			return "", nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields[name] = decoded
	}
	return comment, fields, nil
}

// decodeValue maps parsed JSON back onto the supported kinds. Integral
// numbers decode to int64, everything else numeric to float64.
func decodeValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrCorruptConfig, val.String())
		}
		return f, nil
	case []interface{}:
		items := make([]interface{}, len(val))
		for i, item := range val {
			decoded, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = decoded
		}
		return items, nil
	case map[string]interface{}:
		if kind, ok := val[kindKey]; ok {
			return decodeTagged(kind, val)
		}
		out := make(map[string]interface{}, len(val))
		for key, item := range val {
			decoded, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out[key] = decoded
		}
		return out, nil
	default:
		// nil, bool and string pass through untouched.
		return v, nil
	}
}

func decodeTagged(kind interface{}, obj map[string]interface{}) (interface{}, error) {
	switch kind {
	case kindBytes:
		encoded, ok := obj["data"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: bytes value without data", ErrCorruptConfig)
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: bad base64 data: %v", ErrCorruptConfig, err)
		}
		return data, nil
	case kindComplex:
		re, err := decodeFloat(obj["real"])
		if err != nil {
			return nil, err
		}
		im, err := decodeFloat(obj["imag"])
		if err != nil {
			return nil, err
		}
		return complex(re, im), nil
	case kindTuple:
		items, err := decodeItems(obj)
		if err != nil {
			return nil, err
		}
		return Tuple(items), nil
	case kindSet:
		items, err := decodeItems(obj)
		if err != nil {
			return nil, err
		}
		return Set(items), nil
	default:
		return nil, fmt.Errorf("%w: unknown %s %v", ErrCorruptConfig, kindKey, kind)
	}
}

func decodeItems(obj map[string]interface{}) ([]interface{}, error) {
	raw, ok := obj["items"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: tagged value without items", ErrCorruptConfig)
	}
	items := make([]interface{}, len(raw))
	for i, item := range raw {
		decoded, err := decodeValue(item)
		if err != nil {
			return nil, err
		}
		items[i] = decoded
	}
	return items, nil
}

func decodeFloat(v interface{}) (float64, error) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: complex part is not a number", ErrCorruptConfig)
	}
	f, err := num.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrCorruptConfig, num.String())
	}
	return f, nil
}
