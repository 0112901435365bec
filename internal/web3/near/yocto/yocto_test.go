package yocto

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestParseBounds(t *testing.T) {
	t.Parallel()

	valid := []string{"0", "300", "340282366920938463463374607431768211455", "0x10"}
	for _, in := range valid {
		if _, err := Parse(in); err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
	}

	invalid := []string{"", "-1", "1.5", "abc", "340282366920938463463374607431768211456"}
	for _, in := range invalid {
		if _, err := Parse(in); err == nil {
			t.Fatalf("expected Parse(%q) to fail", in)
		}
	}
}

func TestSubUsesExactArithmetic(t *testing.T) {
	t.Parallel()

	got, err := Sub("300", "100")
	if err != nil || got != "200" {
		t.Fatalf("Sub(300,100) = %q, %v", got, err)
	}

	got, err = Sub("100000000000000000000000001", "1")
	if err != nil || got != "100000000000000000000000000" {
		t.Fatalf("large subtraction lost precision: %q, %v", got, err)
	}
}

func TestFromAny(t *testing.T) {
	t.Parallel()

	cases := []any{"5", json.Number("5"), 5, int64(5), uint64(5), float64(5), big.NewInt(5)}
	for _, in := range cases {
		v, err := FromAny(in)
		if err != nil || v.Int64() != 5 {
			t.Fatalf("FromAny(%#v) = %v, %v", in, v, err)
		}
	}
	if _, err := FromAny(1.5); err == nil {
		t.Fatalf("fractional float must be rejected")
	}
	if _, err := FromAny(1e30); err == nil {
		t.Fatalf("imprecise float must be rejected")
	}
	if _, err := FromAny(nil); err == nil {
		t.Fatalf("nil must be rejected")
	}
}

func TestFormatNEAR(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"0":                           "0",
		"1000000000000000000000000":   "1",
		"1500000000000000000000000":   "1.5",
		"100000000000000000000000000": "100",
		"1":                           "0.000000000000000000000001",
	}
	for in, want := range cases {
		v, _ := new(big.Int).SetString(in, 10)
		if got := FormatNEAR(v); got != want {
			t.Fatalf("FormatNEAR(%s) = %s, want %s", in, got, want)
		}
	}
}
