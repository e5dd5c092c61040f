package textutil

import (
	"reflect"
	"testing"
)

func TestCompactParams(t *testing.T) {
	input := map[string]string{
		" from_name ": " Jane ",
		"message":     " ",
		" ":           "ignored",
	}
	expected := map[string]string{"from_name": "Jane"}
	if actual := CompactParams(input); !reflect.DeepEqual(actual, expected) {
		t.Fatalf("expected %#v got %#v", expected, actual)
	}
	if CompactParams(map[string]string{"a": ""}) != nil {
		t.Fatalf("expected nil when every value is blank")
	}
}

func TestEncodeURIComponent(t *testing.T) {
	cases := map[string]string{
		"abc-_.!~*'()":    "abc-_.!~*'()",
		"a,b":             "a%2Cb",
		"a b&c=d":         "a%20b%26c%3Dd",
		"https://x.io/?q": "https%3A%2F%2Fx.io%2F%3Fq",
		"é":               "%C3%A9",
		"line1\nline2":    "line1%0Aline2",
	}
	for in, want := range cases {
		if got := EncodeURIComponent(in); got != want {
			t.Errorf("EncodeURIComponent(%q) = %q, want %q", in, got, want)
		}
		back, err := DecodeURIComponent(want)
		if err != nil || back != in {
			t.Errorf("DecodeURIComponent(%q) = %q, %v; want %q", want, back, err, in)
		}
	}
}

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Corp.", "acme_corp"},
		{"  --Hello,  World!!  ", "hello_world"},
		{"Café Müller", "cafe_muller"},
		{"", "visiting_card"},
		{"!!!", "visiting_card"},
	}
	for _, tc := range cases {
		if got := Slug(tc.in, '_', "visiting_card"); got != tc.want {
			t.Errorf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReplaceNonAlnum(t *testing.T) {
	if got := ReplaceNonAlnum("Acme Corp.", '_'); got != "acme_corp_" {
		t.Fatalf("got %q", got)
	}
}
