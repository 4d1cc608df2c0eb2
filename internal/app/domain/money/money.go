// Package money represents currency amounts as integer minor units.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount in minor units (1/100 of the currency unit).
type Cents int64

// ErrOverflow reports an amount outside the int64 range of Cents.
var ErrOverflow = errors.New("amount out of range")

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// Parse converts a decimal string such as "45", "45.5" or "45.50" into Cents.
// More than two fractional digits is rejected rather than rounded.
func Parse(raw string) (Cents, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts a decimal amount into Cents.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	scaled := d.Mul(hundred)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than two decimal places", d.String())
	}
	if scaled.GreaterThan(maxCents) || scaled.LessThan(minCents) {
		return 0, fmt.Errorf("amount %s: %w", d.String(), ErrOverflow)
	}
	return Cents(scaled.IntPart()), nil
}

// FromUnits builds an amount from whole currency units.
func FromUnits(units int64) Cents {
	return Cents(units * 100)
}

// Decimal returns the amount in currency units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String formats with exactly two decimal places.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// Mul multiplies by a quantity.
func (c Cents) Mul(qty int) (Cents, error) {
	a, b := int64(c), int64(qty)
	if a == 0 || b == 0 {
		return 0, nil
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, fmt.Errorf("%s x %d: %w", c, qty, ErrOverflow)
	}
	return Cents(p), nil
}

// Add returns c + o.
func (c Cents) Add(o Cents) (Cents, error) {
	if (o > 0 && c > math.MaxInt64-o) || (o < 0 && c < math.MinInt64-o) {
		return 0, fmt.Errorf("%s + %s: %w", c, o, ErrOverflow)
	}
	return c + o, nil
}

// Sum adds amounts, failing instead of wrapping.
func Sum(amounts ...Cents) (Cents, error) {
	var total Cents
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// IsNegative reports whether the amount is below zero.
func (c Cents) IsNegative() bool {
	return c < 0
}

// MarshalJSON encodes the amount as a decimal string.
func (c Cents) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts either a decimal string or a JSON number.
func (c *Cents) UnmarshalJSON(data []byte) error {
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UnmarshalYAML accepts scalar amounts in fixture files.
func (c *Cents) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value stores the amount as BIGINT.
func (c Cents) Value() (driver.Value, error) {
	return int64(c), nil
}

// Scan reads a BIGINT column.
func (c *Cents) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*c = Cents(v)
	case int32:
		*c = Cents(v)
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return err
		}
		*c = Cents(d.IntPart())
	case nil:
		*c = 0
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
	return nil
}
