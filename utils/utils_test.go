package utils

import (
	"errors"
	"testing"
)

func TestIsBlank(t *testing.T) {
	blank := []interface{}{nil, "", "   ", "\n\t", []interface{}{}, map[string]interface{}{}}
	for _, v := range blank {
		if !IsBlank(v) {
			t.Errorf("expected %#v to be blank", v)
		}
	}
	filled := []interface{}{"x", 0.0, false, []interface{}{""}, map[string]interface{}{"a": nil}}
	for _, v := range filled {
		if IsBlank(v) {
			t.Errorf("expected %#v not to be blank", v)
		}
	}
}

func TestAsInt(t *testing.T) {
	cases := []struct {
		in  interface{}
		out int
		ok  bool
	}{
		{1990.0, 1990, true},
		{"1990", 1990, true},
		{" 12 ", 12, true},
		{"12a", 0, false},
		{1.5, 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, c := range cases {
		got, ok := AsInt(c.in)
		if got != c.out || ok != c.ok {
			t.Errorf("AsInt(%#v) = (%d, %v), expected (%d, %v)", c.in, got, ok, c.out, c.ok)
		}
	}
}

func TestAsString(t *testing.T) {
	if AsString(12.0) != "12" {
		t.Errorf("expected integral float to render without a fraction, got %q", AsString(12.0))
	}
	if AsString(" P1 ") != "P1" {
		t.Errorf("expected trimmed string")
	}
	if AsString(map[string]interface{}{}) != "" {
		t.Errorf("expected objects to render empty")
	}
}

func TestHashBytesDiffers(t *testing.T) {
	if HashString(`{"a":1}`) == HashString(`{"a":2}`) {
		t.Error("expected different fingerprints")
	}
	if HashBytes([]byte("ab")) != HashBytes([]byte("a"), []byte("b")) {
		t.Error("expected chunked input to hash like the concatenation")
	}
}

func TestRecoverWithError(t *testing.T) {
	err := func() (err error) {
		defer RecoverWithError(&err)
		panic(errors.New("boom"))
	}()
	if err == nil || err.Error() != "got panic: boom" {
		t.Errorf("unexpected error %v", err)
	}
}
