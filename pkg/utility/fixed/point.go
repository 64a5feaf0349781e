package fixed

import (
	"math"

	"github.com/govalues/decimal"
)

// Point is a decimal quantity as reported by the gateway (sizes, volumes, share counts).
// The zero value is a valid zero. Gateway "no value" markers map to Unset.
type Point struct {
	v     decimal.Decimal
	unset bool
}

var (
	Zero  = Point{}
	Unset = Point{unset: true}
)

func FromInt64(value int64, scale int) Point {
	return Point{v: must(decimal.New(value, scale))}
}

// FromFloat64 converts a float, mapping NaN, infinities and out of range values to Unset.
func FromFloat64(value float64) Point {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Unset
	}
	d, err := decimal.NewFromFloat64(value)
	if err != nil {
		return Unset
	}
	return Point{v: d}
}

func Parse(s string) (Point, error) {
	if s == "" {
		return Unset, nil
	}
	d, err := decimal.Parse(s)
	if err != nil {
		return Unset, err
	}
	return Point{v: d}, nil
}

func MustParse(s string) Point {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Point) IsUnset() bool { return p.unset }
func (p Point) IsZero() bool  { return !p.unset && p.v.IsZero() }

func (p Point) String() string {
	if p.unset {
		return ""
	}
	return p.v.String()
}

// Float64 returns NaN for unset values.
func (p Point) Float64() float64 {
	if p.unset {
		return math.NaN()
	}
	f, _ := p.v.Float64()
	return f
}

func (p Point) Abs() Point {
	if p.unset {
		return p
	}
	return Point{v: p.v.Abs()}
}

func (p Point) Neg() Point {
	if p.unset {
		return p
	}
	return Point{v: p.v.Neg()}
}

// Add returns Unset when either operand is unset.
func (p Point) Add(o Point) Point {
	if p.unset || o.unset {
		return Unset
	}
	return Point{v: must(p.v.Add(o.v))}
}

func (p Point) Sub(o Point) Point {
	if p.unset || o.unset {
		return Unset
	}
	return Point{v: must(p.v.Sub(o.v))}
}

// Cmp orders unset values before every set value.
func (p Point) Cmp(o Point) int {
	switch {
	case p.unset && o.unset:
		return 0
	case p.unset:
		return -1
	case o.unset:
		return 1
	}
	return p.v.Cmp(o.v)
}

func (p Point) Eq(o Point) bool { return p.Cmp(o) == 0 }
func (p Point) Gt(o Point) bool { return p.Cmp(o) > 0 }
func (p Point) Lt(o Point) bool { return p.Cmp(o) < 0 }

func (p Point) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Point) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func must(v decimal.Decimal, err error) decimal.Decimal {
	if err == nil {
		return v
	}
	panic(err)
}
