package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidNumberInput is returned when a value cannot be parsed into a decimal.
var ErrInvalidNumberInput = errors.New("invalid number input")

// ErrDivisionByZero is returned by Divide when the divisor is zero.
var ErrDivisionByZero = errors.New("division by zero")

// Number is the set of input types accepted by the arithmetic helpers.
type Number interface {
	string | int | int64 | float64 | decimal.Decimal
}

// Output is the set of result types the arithmetic helpers can produce.
// The caller picks it explicitly, e.g. Add[string](a, b).
type Output interface {
	string | float64 | decimal.Decimal
}

// ToDecimal parses v into a decimal. Strings may carry thousands separators ("1,000.5").
func ToDecimal[N Number](v N) (decimal.Decimal, error) {
	switch x := any(v).(type) {
	case decimal.Decimal:
		return x, nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidNumberInput, x)
		}
		return decimal.NewFromFloat(x), nil
	case string:
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(x), ",", ""))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumberInput, x)
		}
		return d, nil
	}
	return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidNumberInput, v)
}

// MustDecimal is like ToDecimal but panics on invalid input. Intended for constants and tests.
func MustDecimal[N Number](v N) decimal.Decimal {
	d, err := ToDecimal(v)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// Convert renders a decimal as the requested output type.
func Convert[O Output](d decimal.Decimal) O {
	var out O
	switch p := any(&out).(type) {
	case *string:
		*p = d.String()
	case *float64:
		*p = d.InexactFloat64()
	case *decimal.Decimal:
		*p = d
	}
	return out
}

func operands[A, B Number](a A, b B) (decimal.Decimal, decimal.Decimal, error) {
	da, err := ToDecimal(a)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	db, err := ToDecimal(b)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return da, db, nil
}

// Add returns a + b.
func Add[O Output, A, B Number](a A, b B) (O, error) {
	da, db, err := operands(a, b)
	if err != nil {
		return *new(O), err
	}
	return Convert[O](da.Add(db)), nil
}

// Subtract returns a - b.
func Subtract[O Output, A, B Number](a A, b B) (O, error) {
	da, db, err := operands(a, b)
	if err != nil {
		return *new(O), err
	}
	return Convert[O](da.Sub(db)), nil
}

// Multiply returns a * b.
func Multiply[O Output, A, B Number](a A, b B) (O, error) {
	da, db, err := operands(a, b)
	if err != nil {
		return *new(O), err
	}
	return Convert[O](da.Mul(db)), nil
}

// Divide returns a / b. See Quotient for the precision rules.
func Divide[O Output, A, B Number](a A, b B) (O, error) {
	da, db, err := operands(a, b)
	if err != nil {
		return *new(O), err
	}
	if db.IsZero() {
		return *new(O), fmt.Errorf("%w: %s / 0", ErrDivisionByZero, da)
	}
	return Convert[O](Quotient(da, db)), nil
}

// Quotient divides a by a non-zero b. Division by a power of ten is exact.
// Any other divisor keeps decimal.DivisionPrecision places beyond the scale of a
// and the digits of b, so small amounts are never rounded away.
func Quotient(a, b decimal.Decimal) decimal.Decimal {
	if exp, ok := powerOfTen(b); ok {
		return a.Shift(-exp)
	}
	scale := max(-a.Exponent(), 0) + int32(b.NumDigits()) + int32(decimal.DivisionPrecision)
	return a.DivRound(b, scale)
}

// powerOfTen reports whether d is 10^exp for some exp.
func powerOfTen(d decimal.Decimal) (int32, bool) {
	if d.Sign() <= 0 {
		return 0, false
	}
	c := d.Coefficient().String()
	if c[0] != '1' || strings.Trim(c[1:], "0") != "" {
		return 0, false
	}
	return int32(len(c)-1) + d.Exponent(), true
}

// Sum adds all values. An empty call returns zero.
func Sum[O Output, N Number](values ...N) (O, error) {
	total := decimal.Zero
	for _, v := range values {
		d, err := ToDecimal(v)
		if err != nil {
			return *new(O), err
		}
		total = total.Add(d)
	}
	return Convert[O](total), nil
}

func compare[A, B Number](a A, b B) (int, error) {
	da, db, err := operands(a, b)
	if err != nil {
		return 0, err
	}
	return da.Cmp(db), nil
}

// IsGreaterThan reports a > b.
func IsGreaterThan[A, B Number](a A, b B) (bool, error) {
	c, err := compare(a, b)
	return c > 0, err
}

// IsGreaterThanOrEqualTo reports a >= b.
func IsGreaterThanOrEqualTo[A, B Number](a A, b B) (bool, error) {
	c, err := compare(a, b)
	return err == nil && c >= 0, err
}

// IsLessThan reports a < b.
func IsLessThan[A, B Number](a A, b B) (bool, error) {
	c, err := compare(a, b)
	return c < 0, err
}

// IsLessThanOrEqualTo reports a <= b.
func IsLessThanOrEqualTo[A, B Number](a A, b B) (bool, error) {
	c, err := compare(a, b)
	return err == nil && c <= 0, err
}

// IsEqual reports a == b by value, so "1.50" equals 1.5.
func IsEqual[A, B Number](a A, b B) (bool, error) {
	c, err := compare(a, b)
	return err == nil && c == 0, err
}
