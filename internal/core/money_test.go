package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half away from zero
		{" 2.50 ", "2.5", true},
		{".5", "0.5", true},
		{"-1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseSignedAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"", "0"},
		{"0", "0"},
		{"-150,5", "-150.5"},
		{"1000", "1000"},
	}
	for _, tc := range cases {
		got, err := ParseSignedAmount(tc.in)
		if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
		}
	}
	if _, err := ParseSignedAmount("-x"); err == nil {
		t.Fatal("expected error for garbage")
	}
}

func TestFormatBRL(t *testing.T) {
	cases := map[string]string{
		"0":        "R$ 0,00",
		"12.3":     "R$ 12,30",
		"1234.56":  "R$ 1.234,56",
		"-1000000": "-R$ 1.000.000,00",
	}
	for in, want := range cases {
		if got := FormatBRL(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatBRL(%s) = %q, want %q", in, got, want)
		}
	}
}
