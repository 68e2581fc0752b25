package configmanager

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func roundTrip(t *testing.T, fields map[string]interface{}) map[string]interface{} {
	t.Helper()
	doc, err := encodeDocument("test", fields)
	if err != nil {
		t.Fatalf("encodeDocument: %v", err)
	}
	_, decoded, err := decodeDocument(doc)
	if err != nil {
		t.Fatalf("decodeDocument: %v\n%s", err, doc)
	}
	return decoded
}

func TestTaggedKindsRoundTrip(t *testing.T) {
	fields := map[string]interface{}{
		"blob":  []byte("hello, world"),
		"z":     complex(1.5, -2.25),
		"pair":  Tuple{"x", int64(3)},
		"tags":  Set{"a", "b", "c"},
		"empty": []byte{},
	}
	decoded := roundTrip(t, fields)

	if got, ok := decoded["blob"].([]byte); !ok || !bytes.Equal(got, []byte("hello, world")) {
		t.Errorf("blob = %#v", decoded["blob"])
	}
	if got, ok := decoded["z"].(complex128); !ok || got != complex(1.5, -2.25) {
		t.Errorf("z = %#v", decoded["z"])
	}
	if got, ok := decoded["pair"].(Tuple); !ok || !reflect.DeepEqual(got, Tuple{"x", int64(3)}) {
		t.Errorf("pair = %#v", decoded["pair"])
	}
	if got, ok := decoded["tags"].(Set); !ok || !reflect.DeepEqual(got, Set{"a", "b", "c"}) {
		t.Errorf("tags = %#v", decoded["tags"])
	}
	if got, ok := decoded["empty"].([]byte); !ok || len(got) != 0 {
		t.Errorf("empty = %#v", decoded["empty"])
	}
}

func TestNestedKindsRoundTrip(t *testing.T) {
	fields := map[string]interface{}{
		"nested": map[string]interface{}{
			"inner": Tuple{[]byte{0x01, 0x02}, complex(0, 1)},
			"list":  []interface{}{int64(1), "two", true, nil},
		},
	}
	decoded := roundTrip(t, fields)
	if !reflect.DeepEqual(decoded, fields) {
		t.Errorf("nested round trip mismatch:\n got %#v\nwant %#v", decoded, fields)
	}
}

func TestNumberDecoding(t *testing.T) {
	decoded := roundTrip(t, map[string]interface{}{
		"int":      42,
		"negative": -7,
		"float":    0.5,
		"big":      int64(1) << 40,
	})

	if got := decoded["int"]; got != int64(42) {
		t.Errorf("int decoded as %T %v, want int64 42", got, got)
	}
	if got := decoded["negative"]; got != int64(-7) {
		t.Errorf("negative decoded as %T %v", got, got)
	}
	if got := decoded["float"]; got != 0.5 {
		t.Errorf("float decoded as %T %v, want float64 0.5", got, got)
	}
	if got := decoded["big"]; got != int64(1)<<40 {
		t.Errorf("big decoded as %T %v", got, got)
	}
}

func TestUnsupportedKinds(t *testing.T) {
	cases := []struct {
		name  string
		value interface{}
	}{
		{"channel", make(chan int)},
		{"function", func() {}},
		{"struct", struct{ A int }{1}},
		{"int_keyed_map", map[int]string{1: "a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := encodeDocument("", map[string]interface{}{"field": tc.value})
			if !errors.Is(err, ErrUnsupportedKind) {
				t.Errorf("error = %v, want ErrUnsupportedKind", err)
			}
		})
	}
}

func TestReservedMapKey(t *testing.T) {
	_, err := encodeDocument("", map[string]interface{}{
		"field": map[string]interface{}{"__kind": "spoofed"},
	})
	if !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("error = %v, want ErrUnsupportedKind for reserved map key", err)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not_json", "definitely not json"},
		{"truncated", `{"user": "Mi`},
		{"top_level_array", `[1, 2, 3]`},
		{"trailing_data", `{"a": 1} {"b": 2}`},
		{"unknown_kind", `{"v": {"__kind": "mystery"}}`},
		{"bad_base64", `{"v": {"__kind": "bytes", "data": "!!!"}}`},
		{"tuple_without_items", `{"v": {"__kind": "tuple"}}`},
		{"non_string_comment", `{"_comment": 5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := decodeDocument([]byte(tc.data))
			if !errors.Is(err, ErrCorruptConfig) {
				t.Errorf("error = %v, want ErrCorruptConfig", err)
			}
		})
	}
}

func TestCommentWrittenFirst(t *testing.T) {
	doc, err := encodeDocument("header", map[string]interface{}{"AAA": 1, "zzz": 2})
	if err != nil {
		t.Fatalf("encodeDocument: %v", err)
	}
	want := "{\n  \"_comment\": \"header\""
	if !bytes.HasPrefix(doc, []byte(want)) {
		t.Errorf("document does not start with the comment entry:\n%s", doc)
	}
}

func TestDocumentIsStable(t *testing.T) {
	fields := map[string]interface{}{"b": 2, "a": 1, "c": 3}
	first, err := encodeDocument("x", fields)
	if err != nil {
		t.Fatal(err)
	}
	second, err := encodeDocument("x", fields)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("two encodes of the same fields differ")
	}
}
