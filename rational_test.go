package main

import (
	"testing"
)

func TestParseFrac(t *testing.T) {
	cases := []struct {
		in   string
		want Frac
	}{
		{"3/4", Frac{3, 4}},
		{"1/4", Frac{1, 4}},
		{"2", Frac{2, 1}},
		{"6/8", Frac{3, 4}},
		{"0/4", Frac{0, 1}},
	}
	for _, c := range cases {
		got, err := ParseFrac(c.in)
		if err != nil {
			t.Fatalf("ParseFrac(%q) returned error: %v", c.in, err)
		}
		if !got.Equal(c.want) {
			t.Errorf("ParseFrac(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestParseFracErrors(t *testing.T) {
	for _, in := range []string{"", "a/b", "1/0", "1/2/3"} {
		if _, err := ParseFrac(in); err == nil {
			t.Errorf("ParseFrac(%q) should have failed", in)
		}
	}
}

func TestFracArithmetic(t *testing.T) {
	a := NewFrac(1, 8)
	b := NewFrac(2, 3)
	if got := a.Mul(b); !got.Equal(NewFrac(1, 12)) {
		t.Errorf("1/8 * 2/3 = %s, want 1/12", got)
	}
	if got := NewFrac(1, 12).Add(NewFrac(1, 12)).Add(NewFrac(1, 12)); !got.Equal(NewFrac(1, 4)) {
		t.Errorf("3 * 1/12 = %s, want 1/4", got)
	}
	if got := NewFrac(1, 1).Sub(NewFrac(1, 4)); !got.Equal(NewFrac(3, 4)) {
		t.Errorf("1 - 1/4 = %s, want 3/4", got)
	}
	if got := NewFrac(3, 4).Div(NewFrac(1, 4)); !got.Equal(NewFrac(3, 1)) {
		t.Errorf("3/4 / 1/4 = %s, want 3", got)
	}
}

func TestFracZeroValue(t *testing.T) {
	var zero Frac
	if !zero.IsZero() {
		t.Error("zero value should be zero")
	}
	if got := zero.Add(NewFrac(1, 2)); !got.Equal(NewFrac(1, 2)) {
		t.Errorf("0 + 1/2 = %s, want 1/2", got)
	}
	if zero.String() != "0" {
		t.Errorf("zero String() = %q, want 0", zero.String())
	}
}

func TestFracFloor(t *testing.T) {
	cases := []struct {
		in   Frac
		want int64
	}{
		{NewFrac(7, 4), 1},
		{NewFrac(8, 4), 2},
		{NewFrac(1, 4), 0},
		{NewFrac(-1, 4), -1},
	}
	for _, c := range cases {
		if got := c.in.Floor(); got != c.want {
			t.Errorf("Floor(%s) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFracCmpAndString(t *testing.T) {
	if NewFrac(1, 3).Cmp(NewFrac(1, 2)) != -1 {
		t.Error("1/3 should be less than 1/2")
	}
	if NewFrac(2, 4).Cmp(NewFrac(1, 2)) != 0 {
		t.Error("2/4 should equal 1/2")
	}
	if got := NewFrac(3, 4).String(); got != "3/4" {
		t.Errorf("String() = %q, want 3/4", got)
	}
	if got := NewFrac(4, 2).String(); got != "2" {
		t.Errorf("String() = %q, want 2", got)
	}
}

func TestDurationValues(t *testing.T) {
	cases := []struct {
		name string
		want Frac
	}{
		{"measure", Frac{1, 1}},
		{"breve", Frac{2, 1}},
		{"whole", Frac{1, 1}},
		{"half", Frac{1, 2}},
		{"quarter", Frac{1, 4}},
		{"eighth", Frac{1, 8}},
		{"16th", Frac{1, 16}},
		{"32nd", Frac{1, 32}},
		{"64th", Frac{1, 64}},
		{"128th", Frac{1, 128}},
	}
	for _, c := range cases {
		got, ok := durationValues[c.name]
		if !ok {
			t.Fatalf("duration %q missing", c.name)
		}
		if !got.Equal(c.want) {
			t.Errorf("duration %q = %s, want %s", c.name, got, c.want)
		}
	}
}
