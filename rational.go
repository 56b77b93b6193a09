package main

import (
	"fmt"
	"strconv"
	"strings"
)

// Frac is an exact rational number used for all onsets, durations and
// scalars. The zero value is 0. Values are kept normalized with a positive
// denominator so that equal fractions compare equal.
type Frac struct {
	num, den int64
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// NewFrac returns the normalized fraction num/den. Panics on a zero
// denominator, which always indicates a programming error.
func NewFrac(num, den int64) Frac {
	if den == 0 {
		panic("scoretool: fraction with zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	if g := gcd(num, den); g > 1 {
		num /= g
		den /= g
	}
	return Frac{num, den}
}

// ParseFrac parses strings like "3/4" or "2".
func ParseFrac(s string) (Frac, error) {
	s = strings.TrimSpace(s)
	if n, d, ok := strings.Cut(s, "/"); ok {
		num, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return Frac{}, fmt.Errorf("invalid fraction %q: %w", s, err)
		}
		den, err := strconv.ParseInt(strings.TrimSpace(d), 10, 64)
		if err != nil {
			return Frac{}, fmt.Errorf("invalid fraction %q: %w", s, err)
		}
		if den == 0 {
			return Frac{}, fmt.Errorf("invalid fraction %q: zero denominator", s)
		}
		return NewFrac(num, den), nil
	}
	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Frac{}, fmt.Errorf("invalid fraction %q: %w", s, err)
	}
	return Frac{num, 1}, nil
}

func (f Frac) norm() Frac {
	if f.den == 0 {
		return Frac{f.num, 1}
	}
	return f
}

func (f Frac) Num() int64 { return f.norm().num }
func (f Frac) Den() int64 { return f.norm().den }

func (f Frac) Add(o Frac) Frac {
	f, o = f.norm(), o.norm()
	return NewFrac(f.num*o.den+o.num*f.den, f.den*o.den)
}

func (f Frac) Sub(o Frac) Frac {
	f, o = f.norm(), o.norm()
	return NewFrac(f.num*o.den-o.num*f.den, f.den*o.den)
}

func (f Frac) Mul(o Frac) Frac {
	f, o = f.norm(), o.norm()
	return NewFrac(f.num*o.num, f.den*o.den)
}

// Div divides f by o. Panics if o is zero.
func (f Frac) Div(o Frac) Frac {
	f, o = f.norm(), o.norm()
	if o.num == 0 {
		panic("scoretool: division by zero fraction")
	}
	return NewFrac(f.num*o.den, f.den*o.num)
}

// Cmp returns -1, 0 or +1 depending on whether f is smaller than, equal to
// or greater than o.
func (f Frac) Cmp(o Frac) int {
	f, o = f.norm(), o.norm()
	l, r := f.num*o.den, o.num*f.den
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	}
	return 0
}

func (f Frac) Equal(o Frac) bool { return f.Cmp(o) == 0 }
func (f Frac) IsZero() bool      { return f.norm().num == 0 }

// Floor returns the largest integer not greater than f.
func (f Frac) Floor() int64 {
	f = f.norm()
	q := f.num / f.den
	if f.num%f.den != 0 && f.num < 0 {
		q--
	}
	return q
}

func (f Frac) String() string {
	f = f.norm()
	if f.den == 1 {
		return strconv.FormatInt(f.num, 10)
	}
	return fmt.Sprintf("%d/%d", f.num, f.den)
}

func (f Frac) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.String() + `"`), nil
}

// Nominal duration values keyed by MuseScore durationType text.
var durationValues = map[string]Frac{
	"measure": {1, 1},
	"breve":   {2, 1},
	"whole":   {1, 1},
	"half":    {1, 2},
	"quarter": {1, 4},
	"eighth":  {1, 8},
	"16th":    {1, 16},
	"32nd":    {1, 32},
	"64th":    {1, 64},
	"128th":   {1, 128},
}

// Beat sizes for common time signatures; anything missing falls back to
// defaultBeatSize.
var timesigBeats = map[string]Frac{
	"3/16": {1, 16},
	"6/16": {3, 16},
	"3/8":  {1, 8},
	"4/8":  {1, 4},
	"6/8":  {3, 8},
	"9/8":  {3, 8},
	"12/8": {3, 8},
	"2/4":  {1, 4},
	"3/4":  {1, 4},
	"4/4":  {1, 4},
	"6/4":  {3, 4},
	"2/2":  {1, 2},
	"3/2":  {1, 2},
}

var defaultBeatSize = Frac{1, 4}
