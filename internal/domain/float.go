package domain

import (
	"math"
	"strconv"
)

// Float is a float64 whose undefined value (NaN) marshals as JSON null.
// The engine uses NaN as the explicit sentinel for "undefined" (missing
// corridor, zero-volume weighted price, zero-net-sales ratio); plain
// encoding/json refuses to encode NaN, so every possibly-undefined column
// uses this type instead.
type Float float64

// NaN returns the undefined sentinel.
func NaN() Float {
	return Float(math.NaN())
}

// IsNaN reports whether the value is undefined.
func (f Float) IsNaN() bool {
	return math.IsNaN(float64(f))
}

// MarshalJSON encodes NaN (and infinities) as null.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// UnmarshalJSON decodes null back to NaN.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = NaN()
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}
