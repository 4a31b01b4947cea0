package args

import (
	"errors"
	"math"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRequiredStringFailsClosed(t *testing.T) {
	bag := Bag{
		"name":  String("index.html"),
		"count": Number(3),
		"nil":   Null(),
	}
	got, err := bag.RequiredString("name")
	if err != nil || got != "index.html" {
		t.Fatalf("expected index.html, got %q (%v)", got, err)
	}

	_, err = bag.RequiredString("count")
	var argErr *Error
	if !errors.As(err, &argErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if argErr.Name != "count" || argErr.Got != KindNumber || argErr.Missing {
		t.Fatalf("unexpected error details: %+v", argErr)
	}
	if !errors.Is(err, ErrWrongType) {
		t.Fatalf("expected ErrWrongType, got %v", err)
	}

	for _, key := range []string{"absent", "nil"} {
		_, err = bag.RequiredString(key)
		if !errors.Is(err, ErrMissing) {
			t.Fatalf("%s: expected ErrMissing, got %v", key, err)
		}
	}
}

func TestOptionalBool(t *testing.T) {
	cases := []struct {
		name    string
		bag     Bag
		want    bool
		wantErr bool
	}{
		{name: "absent uses default", bag: Bag{}, want: false},
		{name: "null uses default", bag: Bag{"flag": Null()}, want: false},
		{name: "true", bag: Bag{"flag": Bool(true)}, want: true},
		{name: "false", bag: Bag{"flag": Bool(false)}, want: false},
		{name: "string rejected", bag: Bag{"flag": String("true")}, wantErr: true},
		{name: "number rejected", bag: Bag{"flag": Number(1)}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.bag.OptionalBool("flag", false)
			if tc.wantErr {
				if !errors.Is(err, ErrWrongType) {
					t.Fatalf("expected ErrWrongType, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestBagFromYAMLKeepsTypes(t *testing.T) {
	var raw map[string]any
	doc := "path: a/b.txt\ndata: hi\nbase64: true\nsize: 12\ntags: [x, y]\nmeta:\n  k: v\n"
	if err := yaml.Unmarshal([]byte(doc), &raw); err != nil {
		t.Fatal(err)
	}
	bag, err := BagFromMap(raw)
	if err != nil {
		t.Fatalf("BagFromMap returned error: %v", err)
	}
	want := map[string]Kind{
		"path":   KindString,
		"data":   KindString,
		"base64": KindBool,
		"size":   KindNumber,
		"tags":   KindList,
		"meta":   KindMap,
	}
	for key, kind := range want {
		if got := bag[key].Kind(); got != kind {
			t.Fatalf("%s: expected %s, got %s", key, kind, got)
		}
	}
	if keys := bag.Keys(); len(keys) != 6 || keys[0] != "base64" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestFromAnyRejectsUnsupported(t *testing.T) {
	if _, err := FromAny(struct{}{}); err == nil {
		t.Fatalf("expected error for struct value")
	}
	if _, err := FromAny(map[any]any{1: "x"}); err == nil {
		t.Fatalf("expected error for non-string map key")
	}
	for _, n := range []any{math.NaN(), math.Inf(1), float32(math.NaN()), float32(math.Inf(-1))} {
		if _, err := FromAny(n); err == nil {
			t.Fatalf("expected error for non-finite %v", n)
		}
	}
	if v, err := FromAny(float32(1.5)); err != nil || v.Kind() != KindNumber {
		t.Fatalf("expected float32 number, got %v (%v)", v, err)
	}
}

func TestInterfaceRoundTrip(t *testing.T) {
	v := Map(map[string]Value{
		"ok":    Bool(true),
		"items": List(String("a"), Number(2)),
	})
	out, ok := v.Interface().(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", v.Interface())
	}
	if out["ok"] != true {
		t.Fatalf("expected ok=true, got %v", out["ok"])
	}
	items, ok := out["items"].([]any)
	if !ok || len(items) != 2 || items[0] != "a" || items[1] != float64(2) {
		t.Fatalf("unexpected items %v", out["items"])
	}
	if got := v.String(); got != "map[items:[a 2] ok:true]" {
		t.Fatalf("unexpected String() %q", got)
	}
}
